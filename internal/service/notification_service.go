package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"notechat-be/internal/model"
	"notechat-be/internal/pkg/logger"
	"notechat-be/internal/repository"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/pkg/events"
	pktNats "notechat-be/pkg/nats"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Send(userID uuid.UUID, notification model.Notification)
}

type NotificationService struct {
	repo       repository.NotificationRepository
	uowFactory unitofwork.RepositoryFactory
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	uowFactory unitofwork.RepositoryFactory,
	sub *pktNats.Subscriber,
	delivery NotificationDelivery,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		uowFactory: uowFactory,
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("events.>", "notification-service", s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to events.>", nil)
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.ToUpper(strings.TrimPrefix(event.EventType(), "events."))

	switch typeCode {
	case events.TypeChatReplyCreated:
		return s.handleChatReplyCreated(ctx, event)
	case events.TypeNoteShared:
		return s.handleNoteShared(ctx, event)
	default:
		// Events without a notification mapping are acked and dropped.
		return nil
	}
}

// handleChatReplyCreated notifies everyone on the note except the user who
// sent the prompt. The reply is already persisted when this runs.
func (s *NotificationService) handleChatReplyCreated(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	noteId, err := parsePayloadUUID(payload, "note_id")
	if err != nil {
		s.logger.Warn("NotificationService", "CHAT_REPLY_CREATED payload missing note_id", map[string]interface{}{"error": err.Error()})
		return nil
	}
	authorId, _ := parsePayloadUUID(payload, "author_id")
	noteTitle, _ := payload["note_title"].(string)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: noteId})
	if err != nil {
		return err
	}
	if note == nil {
		return nil
	}

	collaboratorIds, err := uow.NoteRepository().FindCollaboratorIds(ctx, noteId)
	if err != nil {
		return err
	}

	recipients := append([]uuid.UUID{note.UserId}, collaboratorIds...)

	metaJSON, _ := json.Marshal(payload)

	for _, userID := range recipients {
		if userID == authorId {
			continue
		}

		notif := model.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			TypeCode:  events.TypeChatReplyCreated,
			Title:     "AI reply ready",
			Message:   fmt.Sprintf("The assistant replied on \"%s\"", noteTitle),
			Metadata:  datatypes.JSON(metaJSON),
			CreatedAt: time.Now(),
			IsRead:    false,
		}

		if err := s.repo.CreateNotification(ctx, &notif); err != nil {
			s.logger.Error("NotificationService", fmt.Sprintf("Error saving notification for user %s", userID), map[string]interface{}{"error": err})
			continue
		}

		if s.delivery != nil {
			s.delivery.Send(userID, notif)
		}
	}

	return nil
}

func (s *NotificationService) handleNoteShared(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	targetId, err := parsePayloadUUID(payload, "target_user")
	if err != nil {
		s.logger.Warn("NotificationService", "NOTE_SHARED payload missing target_user", map[string]interface{}{"error": err.Error()})
		return nil
	}
	noteTitle, _ := payload["note_title"].(string)

	metaJSON, _ := json.Marshal(payload)

	notif := model.Notification{
		ID:        uuid.New(),
		UserID:    targetId,
		TypeCode:  events.TypeNoteShared,
		Title:     "Note shared with you",
		Message:   fmt.Sprintf("You were added as a collaborator on \"%s\"", noteTitle),
		Metadata:  datatypes.JSON(metaJSON),
		CreatedAt: time.Now(),
		IsRead:    false,
	}

	if err := s.repo.CreateNotification(ctx, &notif); err != nil {
		return err
	}

	if s.delivery != nil {
		s.delivery.Send(targetId, notif)
	}

	return nil
}

func parsePayloadUUID(payload map[string]interface{}, key string) (uuid.UUID, error) {
	raw, ok := payload[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("payload field %q missing or not a string", key)
	}
	return uuid.Parse(raw)
}

// GetNotifications fetches notifications for a user.
func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.repo.GetNotificationsByUserID(ctx, userID, limit, offset)
}

// GetUnreadCount fetches unread count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

// MarkAsRead marks a notification as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}
