package service

import (
	"bufio"
	"context"
	"encoding/json"
	"time"

	"notechat-be/internal/constant"
	"notechat-be/internal/dto"
	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/logger"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/pkg/chat/access"
	"notechat-be/pkg/chat/history"
	"notechat-be/pkg/chat/message"
	"notechat-be/pkg/chat/prompt"
	"notechat-be/pkg/chat/stream"
	"notechat-be/pkg/events"
	"notechat-be/pkg/llm"
	pktNats "notechat-be/pkg/nats"

	"github.com/google/uuid"
)

// persistTimeout bounds the worker-side save of the MODEL turn. Unlike the
// generation call it only talks to our own database.
const persistTimeout = 30 * time.Second

// StreamFunc produces the reply on a detached body-stream goroutine. It
// runs after the request handler has returned; the transport owns closing
// the underlying stream on every exit path.
type StreamFunc func(w *bufio.Writer)

type IChatService interface {
	GetChatHistory(ctx context.Context, userId uuid.UUID, noteId uuid.UUID) ([]*dto.ChatMessageResponse, error)
	StreamChat(ctx context.Context, userId uuid.UUID, noteId uuid.UUID, request *dto.SendChatRequest) (StreamFunc, error)
}

// ChatConfig tunes the streaming pipeline.
type ChatConfig struct {
	HistoryWindow   int
	ChunkSize       int
	Delay           time.Duration
	GenerateTimeout time.Duration
}

type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	llmProvider llm.LLMProvider
	logger      logger.ILogger
	cfg         ChatConfig

	verifier      *access.Verifier
	historyLoader *history.Loader
	promptBuilder *prompt.Builder
	saver         *message.Saver
	pacer         *stream.Pacer

	activityPublisher IPublisherService
	eventPublisher    *pktNats.Publisher
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	sysLogger logger.ILogger,
	cfg ChatConfig,
	activityPublisher IPublisherService,
	eventPublisher *pktNats.Publisher,
) IChatService {
	return &chatService{
		uowFactory:  uowFactory,
		llmProvider: llmProvider,
		logger:      sysLogger,
		cfg:         cfg,

		verifier:      access.NewVerifier(),
		historyLoader: history.NewLoader(uowFactory),
		promptBuilder: prompt.NewBuilder(),
		saver:         message.NewSaver(uowFactory),
		pacer:         stream.NewPacer(cfg.ChunkSize, cfg.Delay),

		activityPublisher: activityPublisher,
		eventPublisher:    eventPublisher,
	}
}

// GetChatHistory returns the note's full conversation, oldest first.
func (s *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, noteId uuid.UUID) ([]*dto.ChatMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.verifier.Authorize(ctx, uow, noteId, userId); err != nil {
		return nil, err
	}

	turns, err := s.historyLoader.FullHistory(ctx, noteId)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.ChatMessageResponse, 0, len(turns))
	for _, turn := range turns {
		response = append(response, &dto.ChatMessageResponse{
			Id:        turn.Id,
			Role:      turn.Role,
			Chat:      turn.Chat,
			CreatedAt: turn.CreatedAt,
		})
	}
	return response, nil
}

// StreamChat runs the synchronous prefix on the request path: authorize,
// durably append the USER turn, snapshot the window, and assemble the
// prompt. The returned StreamFunc then carries everything it needs —
// including an explicit copy of the caller's identity — onto the detached
// worker, which has no ambient request context of its own.
func (s *chatService) StreamChat(ctx context.Context, userId uuid.UUID, noteId uuid.UUID, request *dto.SendChatRequest) (StreamFunc, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	note, err := s.verifier.Authorize(ctx, uow, noteId, userId)
	if err != nil {
		return nil, err
	}

	// Committed before control returns, so the user's message survives any
	// downstream failure.
	if _, err := s.saver.SaveTurn(ctx, noteId, constant.ChatMessageRoleUser, request.Message); err != nil {
		return nil, err
	}

	window, err := s.historyLoader.RecentWindow(ctx, noteId, s.cfg.HistoryWindow)
	if err != nil {
		return nil, err
	}

	promptText := s.promptBuilder.Build(note, window)

	identity := userId
	return func(w *bufio.Writer) {
		s.runWorker(w, identity, note, promptText)
	}, nil
}

// runWorker executes on the detached stream goroutine, after the request
// that spawned it has completed.
func (s *chatService) runWorker(w *bufio.Writer, identity uuid.UUID, note *entity.Note, promptText string) {
	genCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GenerateTimeout)
	defer cancel()

	reply, err := s.llmProvider.Generate(genCtx, promptText)
	if err != nil {
		s.logger.Error("ChatService", "Generation failed", map[string]interface{}{
			"note_id": note.Id,
			"user_id": identity,
			"error":   err.Error(),
		})
		// Fallback goes to the stream if it is still writable; no MODEL
		// turn is persisted on this path.
		if _, werr := w.WriteString(constant.ChatStreamFallbackMessage); werr == nil {
			_ = w.Flush()
		}
		return
	}

	if err := s.pacer.Emit(w, reply); err != nil {
		// Consumer went away mid-stream. The reply was still generated, so
		// persistence proceeds from the accumulated text.
		s.logger.Warn("ChatService", "Stream write failed, persisting anyway", map[string]interface{}{
			"note_id": note.Id,
			"error":   err.Error(),
		})
	}

	persistCtx, cancelPersist := context.WithTimeout(context.Background(), persistTimeout)
	defer cancelPersist()

	saved, err := s.saver.SaveTurn(persistCtx, note.Id, constant.ChatMessageRoleModel, reply)
	if err != nil {
		// Logged and swallowed: the stream has already completed and there
		// is no channel left to surface this on.
		s.logger.Error("ChatService", "Failed to persist MODEL turn", map[string]interface{}{
			"note_id": note.Id,
			"error":   err.Error(),
		})
		return
	}

	s.publishReplyCreated(persistCtx, identity, note, saved)
}

func (s *chatService) publishReplyCreated(ctx context.Context, identity uuid.UUID, note *entity.Note, turn *entity.ChatMessage) {
	if s.activityPublisher != nil {
		msgJson, _ := json.Marshal(dto.PublishNoteTouchedMessage{NoteId: note.Id})
		if err := s.activityPublisher.Publish(ctx, msgJson); err != nil {
			s.logger.Warn("ChatService", "Failed to publish note activity", map[string]interface{}{
				"note_id": note.Id,
				"error":   err.Error(),
			})
		}
	}

	if s.eventPublisher != nil {
		event := events.NewChatReplyCreated(note.Id, turn.Id, identity, note.Title)
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("ChatService", "Failed to publish reply event", map[string]interface{}{
				"note_id": note.Id,
				"error":   err.Error(),
			})
		}
	}
}
