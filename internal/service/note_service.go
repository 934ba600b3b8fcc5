package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notechat-be/internal/dto"
	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/pkg/chat/access"
	"notechat-be/pkg/events"
	pktNats "notechat-be/pkg/nats"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const recentNotesLimit = 10

type INoteService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Share(ctx context.Context, userId uuid.UUID, req *dto.ShareNoteRequest) error
	Recent(ctx context.Context, userId uuid.UUID) ([]*dto.RecentNoteResponse, error)
}

type noteService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	accessVerifier   *access.Verifier
	recentCache      *gocache.Cache
}

func NewNoteService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	recentCache *gocache.Cache,
) INoteService {
	return &noteService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		accessVerifier:   access.NewVerifier(),
		recentCache:      recentCache,
	}
}

func recentNotesCacheKey(userId uuid.UUID) string {
	return "recent_notes:" + userId.String()
}

func (c *noteService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()
	note := entity.Note{
		Id:             uuid.New(),
		Title:          req.Title,
		Content:        req.Content,
		UserId:         userId,
		LastActivityAt: now,
		CreatedAt:      now,
	}

	err := uow.NoteRepository().Create(ctx, &note)
	if err != nil {
		return nil, err
	}

	msgJson, err := json.Marshal(dto.PublishNoteTouchedMessage{NoteId: note.Id})
	if err != nil {
		return nil, err
	}
	if err := c.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	return &dto.CreateNoteResponse{
		Id: note.Id,
	}, nil
}

func (c *noteService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	// Collaborators may read, so ownership alone is not the gate here.
	note, err := c.accessVerifier.Authorize(ctx, uow, id, userId)
	if err != nil {
		return nil, err
	}

	collaboratorIds, err := uow.NoteRepository().FindCollaboratorIds(ctx, note.Id)
	if err != nil {
		return nil, err
	}

	res := dto.ShowNoteResponse{
		Id:             note.Id,
		Title:          note.Title,
		Content:        note.Content,
		OwnerId:        note.UserId,
		Collaborators:  collaboratorIds,
		LastActivityAt: note.LastActivityAt,
		CreatedAt:      note.CreatedAt,
		UpdatedAt:      note.UpdatedAt,
	}

	return &res, nil
}

func (c *noteService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperror.NewNotFound("note not found with id %s", req.Id)
	}

	now := time.Now()

	note.Title = req.Title
	note.Content = req.Content
	note.UpdatedAt = &now
	note.LastActivityAt = now

	err = uow.NoteRepository().Update(ctx, note)
	if err != nil {
		return nil, err
	}

	msgJson, _ := json.Marshal(dto.PublishNoteTouchedMessage{NoteId: note.Id})
	if err := c.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	return &dto.UpdateNoteResponse{
		Id: note.Id,
	}, nil
}

func (c *noteService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if note == nil {
		return apperror.NewNotFound("note not found with id %s", id)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.NoteRepository().Delete(ctx, id); err != nil {
		return err
	}

	// The conversation has no life of its own once the note is gone.
	if err := uow.ChatMessageRepository().DeleteByNoteId(ctx, id); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	c.recentCache.Delete(recentNotesCacheKey(userId))
	return nil
}

func (c *noteService) Share(ctx context.Context, userId uuid.UUID, req *dto.ShareNoteRequest) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if note == nil {
		return apperror.NewNotFound("note not found with id %s", req.Id)
	}

	target, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: req.Email})
	if err != nil {
		return err
	}
	if target == nil {
		return apperror.NewNotFound("no user registered with email %s", req.Email)
	}
	if target.Id == userId {
		return apperror.NewBadRequest("cannot share a note with its owner")
	}

	collaboratorIds, err := uow.NoteRepository().FindCollaboratorIds(ctx, note.Id)
	if err != nil {
		return err
	}
	for _, id := range collaboratorIds {
		if id == target.Id {
			return apperror.NewConflict("user is already a collaborator on this note")
		}
	}

	collaborator := entity.NoteCollaborator{
		Id:        uuid.New(),
		NoteId:    note.Id,
		UserId:    target.Id,
		CreatedAt: time.Now(),
	}
	if err := uow.NoteRepository().AddCollaborator(ctx, &collaborator); err != nil {
		return err
	}

	if c.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeNoteShared,
			Data: map[string]interface{}{
				"note_id":     note.Id.String(),
				"note_title":  note.Title,
				"owner_id":    userId.String(),
				"target_user": target.Id.String(),
			},
			OccurredAt: time.Now(),
		}
		if err := c.eventPublisher.Publish(ctx, evt); err != nil {
			fmt.Printf("[WARN] Failed to publish NOTE_SHARED event: %v\n", err)
		}
	}

	return nil
}

func (c *noteService) Recent(ctx context.Context, userId uuid.UUID) ([]*dto.RecentNoteResponse, error) {
	key := recentNotesCacheKey(userId)
	if cached, found := c.recentCache.Get(key); found {
		if notes, ok := cached.([]*dto.RecentNoteResponse); ok {
			return notes, nil
		}
	}

	uow := c.uowFactory.NewUnitOfWork(ctx)
	notes, err := uow.NoteRepository().FindAll(ctx,
		specification.OwnedBy{UserID: userId},
		specification.OrderBy{Field: "last_activity_at", Desc: true},
		specification.Limit{N: recentNotesLimit},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.RecentNoteResponse, 0, len(notes))
	for _, note := range notes {
		response = append(response, &dto.RecentNoteResponse{
			Id:             note.Id,
			Title:          note.Title,
			LastActivityAt: note.LastActivityAt,
		})
	}

	c.recentCache.Set(key, response, gocache.DefaultExpiration)
	return response, nil
}
