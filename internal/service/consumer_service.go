package service

import (
	"context"
	"encoding/json"
	"log"

	"notechat-be/internal/dto"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the note-activity topic and keeps the owner's
// recent-notes cache in step with the database.
type consumerService struct {
	pubSub      *gochannel.GoChannel
	topicName   string
	uowFactory  unitofwork.RepositoryFactory
	recentCache *gocache.Cache
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	recentCache *gocache.Cache,
) IConsumerService {
	return &consumerService{
		pubSub:      pubSub,
		topicName:   topicName,
		uowFactory:  uowFactory,
		recentCache: recentCache,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishNoteTouchedMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	note, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: payload.NoteId})
	if err != nil {
		log.Printf("[ERROR] Failed to get note %s: %v", payload.NoteId, err)
		msg.Nack()
		return
	}
	if note == nil {
		// Note deleted between publish and consume. Ack.
		msg.Ack()
		return
	}

	notes, err := uow.NoteRepository().FindAll(ctx,
		specification.OwnedBy{UserID: note.UserId},
		specification.OrderBy{Field: "last_activity_at", Desc: true},
		specification.Limit{N: recentNotesLimit},
	)
	if err != nil {
		log.Printf("[ERROR] Failed to rebuild recent notes for user %s: %v", note.UserId, err)
		msg.Nack()
		return
	}

	response := make([]*dto.RecentNoteResponse, 0, len(notes))
	for _, n := range notes {
		response = append(response, &dto.RecentNoteResponse{
			Id:             n.Id,
			Title:          n.Title,
			LastActivityAt: n.LastActivityAt,
		})
	}

	cs.recentCache.Set(recentNotesCacheKey(note.UserId), response, gocache.DefaultExpiration)
	msg.Ack()
}
