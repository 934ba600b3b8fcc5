package service

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"notechat-be/internal/constant"
	"notechat-be/internal/dto"
	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/apperror"
	"notechat-be/internal/repository/contract"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is a shared in-memory backing for the fake repositories. The
// specification structs are interpreted directly instead of being applied
// to a gorm query.
type memStore struct {
	mu     sync.Mutex
	notes  map[uuid.UUID]*entity.Note
	collab map[uuid.UUID][]uuid.UUID
	turns  []*entity.ChatMessage
	users  map[uuid.UUID]*entity.User
}

func newMemStore() *memStore {
	return &memStore{
		notes:  make(map[uuid.UUID]*entity.Note),
		collab: make(map[uuid.UUID][]uuid.UUID),
		users:  make(map[uuid.UUID]*entity.User),
	}
}

type memFactory struct{ store *memStore }

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{store: f.store}
}

type memUow struct{ store *memStore }

func (u *memUow) Begin(ctx context.Context) error { return nil }
func (u *memUow) Commit() error                   { return nil }
func (u *memUow) Rollback() error                 { return nil }

func (u *memUow) UserRepository() contract.UserRepository {
	return &memUserRepo{store: u.store}
}

func (u *memUow) NoteRepository() contract.NoteRepository {
	return &memNoteRepo{store: u.store}
}

func (u *memUow) ChatMessageRepository() contract.ChatMessageRepository {
	return &memChatRepo{store: u.store}
}

type memNoteRepo struct{ store *memStore }

func (r *memNoteRepo) Create(ctx context.Context, note *entity.Note) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *note
	r.store.notes[note.Id] = &cp
	return nil
}

func (r *memNoteRepo) Update(ctx context.Context, note *entity.Note) error {
	return r.Create(ctx, note)
}

func (r *memNoteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.notes, id)
	return nil
}

func (r *memNoteRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, note := range r.store.notes {
		if noteMatches(note, specs) {
			cp := *note
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memNoteRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Note, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Note
	for _, note := range r.store.notes {
		if noteMatches(note, specs) {
			cp := *note
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memNoteRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	notes, _ := r.FindAll(ctx, specs...)
	return int64(len(notes)), nil
}

func (r *memNoteRepo) TouchLastActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	note, ok := r.store.notes[id]
	if !ok {
		return nil
	}
	note.LastActivityAt = at
	return nil
}

func (r *memNoteRepo) AddCollaborator(ctx context.Context, collaborator *entity.NoteCollaborator) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.collab[collaborator.NoteId] = append(r.store.collab[collaborator.NoteId], collaborator.UserId)
	return nil
}

func (r *memNoteRepo) FindCollaboratorIds(ctx context.Context, noteId uuid.UUID) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]uuid.UUID(nil), r.store.collab[noteId]...), nil
}

func noteMatches(note *entity.Note, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if note.Id != s.ID {
				return false
			}
		case specification.OwnedBy:
			if note.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

type memChatRepo struct{ store *memStore }

func (r *memChatRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *message
	r.store.turns = append(r.store.turns, &cp)
	return nil
}

func (r *memChatRepo) DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.turns[:0]
	for _, turn := range r.store.turns {
		if turn.NoteId != noteId {
			kept = append(kept, turn)
		}
	}
	r.store.turns = kept
	return nil
}

// FindAll relies on the log being append-only: ascending order is insertion
// order, descending is the reverse.
func (r *memChatRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	desc := false
	limit := -1
	var noteId *uuid.UUID
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByNoteID:
			id := s.NoteID
			noteId = &id
		case specification.OrderBy:
			desc = s.Desc
		case specification.Limit:
			limit = s.N
		}
	}

	var out []*entity.ChatMessage
	for _, turn := range r.store.turns {
		if noteId != nil && turn.NoteId != *noteId {
			continue
		}
		cp := *turn
		out = append(out, &cp)
	}
	if desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memChatRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	turns, _ := r.FindAll(ctx, specs...)
	return int64(len(turns)), nil
}

type memUserRepo struct{ store *memStore }

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *user
	r.store.users[user.Id] = &cp
	return nil
}

func (r *memUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		match := true
		for _, spec := range specs {
			switch s := spec.(type) {
			case specification.ByID:
				if user.Id != s.ID {
					match = false
				}
			case specification.ByEmail:
				if user.Email != s.Email {
					match = false
				}
			}
		}
		if match {
			cp := *user
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.users)), nil
}

// stubLLM returns a fixed reply and records the prompt it was given.
type stubLLM struct {
	mu     sync.Mutex
	reply  string
	err    error
	prompt string
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
	return s.reply, s.err
}

func (s *stubLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestChatService(store *memStore, provider llm.LLMProvider) IChatService {
	return NewChatService(
		&memFactory{store: store},
		provider,
		nopLogger{},
		ChatConfig{
			HistoryWindow:   10,
			ChunkSize:       1,
			Delay:           0,
			GenerateTimeout: 5 * time.Second,
		},
		nil,
		nil,
	)
}

func seedNote(store *memStore, ownerId uuid.UUID) *entity.Note {
	note := &entity.Note{
		Id:        uuid.New(),
		Title:     "Test Note",
		Content:   "note body",
		UserId:    ownerId,
		CreatedAt: time.Now(),
	}
	store.notes[note.Id] = note
	return note
}

func runStream(fn StreamFunc) string {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fn(w)
	w.Flush()
	return buf.String()
}

func noteTurns(store *memStore, noteId uuid.UUID) []*entity.ChatMessage {
	store.mu.Lock()
	defer store.mu.Unlock()
	var out []*entity.ChatMessage
	for _, turn := range store.turns {
		if turn.NoteId == noteId {
			out = append(out, turn)
		}
	}
	return out
}

func TestStreamChatPersistsUserTurnBeforeStreaming(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	note := seedNote(store, owner)
	svc := newTestChatService(store, &stubLLM{reply: "hi there"})

	_, err := svc.StreamChat(context.Background(), owner, note.Id, &dto.SendChatRequest{Message: "hello"})
	require.NoError(t, err)

	// The USER turn is durable even though the stream has not run yet.
	turns := noteTurns(store, note.Id)
	require.Len(t, turns, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Chat)
}

func TestStreamChatStreamsAndPersistsModelTurn(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	note := seedNote(store, owner)
	svc := newTestChatService(store, &stubLLM{reply: "the answer"})

	streamFn, err := svc.StreamChat(context.Background(), owner, note.Id, &dto.SendChatRequest{Message: "question?"})
	require.NoError(t, err)

	out := runStream(streamFn)
	assert.Equal(t, "the answer", out)

	turns := noteTurns(store, note.Id)
	require.Len(t, turns, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, turns[0].Role)
	assert.Equal(t, constant.ChatMessageRoleModel, turns[1].Role)
	assert.Equal(t, "the answer", turns[1].Chat)

	// The MODEL save also bumps the note's activity timestamp.
	assert.False(t, store.notes[note.Id].LastActivityAt.IsZero())
}

func TestStreamChatGenerationFailureWritesFallback(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	note := seedNote(store, owner)
	svc := newTestChatService(store, &stubLLM{err: errors.New("upstream 503")})

	streamFn, err := svc.StreamChat(context.Background(), owner, note.Id, &dto.SendChatRequest{Message: "hello"})
	require.NoError(t, err)

	out := runStream(streamFn)
	assert.Equal(t, constant.ChatStreamFallbackMessage, out)

	// The USER turn survives; no MODEL turn is written on this path.
	turns := noteTurns(store, note.Id)
	require.Len(t, turns, 1)
	assert.Equal(t, constant.ChatMessageRoleUser, turns[0].Role)
}

func TestStreamChatForbiddenWritesNothing(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	stranger := uuid.New()
	note := seedNote(store, owner)
	svc := newTestChatService(store, &stubLLM{reply: "hi"})

	_, err := svc.StreamChat(context.Background(), stranger, note.Id, &dto.SendChatRequest{Message: "let me in"})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
	assert.Empty(t, noteTurns(store, note.Id))
}

func TestStreamChatUnknownNote(t *testing.T) {
	store := newMemStore()
	svc := newTestChatService(store, &stubLLM{reply: "hi"})

	_, err := svc.StreamChat(context.Background(), uuid.New(), uuid.New(), &dto.SendChatRequest{Message: "hello"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestStreamChatCollaboratorAllowed(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	collaborator := uuid.New()
	note := seedNote(store, owner)
	store.collab[note.Id] = []uuid.UUID{collaborator}
	svc := newTestChatService(store, &stubLLM{reply: "welcome"})

	streamFn, err := svc.StreamChat(context.Background(), collaborator, note.Id, &dto.SendChatRequest{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "welcome", runStream(streamFn))
}

func TestStreamChatWindowBoundsPrompt(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	note := seedNote(store, owner)

	// Eleven prior turns; with the new USER message the window of ten drops
	// the two oldest.
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 11; i++ {
		role := constant.ChatMessageRoleUser
		if i%2 == 1 {
			role = constant.ChatMessageRoleModel
		}
		store.turns = append(store.turns, &entity.ChatMessage{
			Id:        uuid.New(),
			NoteId:    note.Id,
			Role:      role,
			Chat:      fmt.Sprintf("turn-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	provider := &stubLLM{reply: "ok"}
	svc := newTestChatService(store, provider)

	_, err := svc.StreamChat(context.Background(), owner, note.Id, &dto.SendChatRequest{Message: "latest"})
	require.NoError(t, err)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "latest")
	assert.Contains(t, prompt, "turn-10")
	assert.Contains(t, prompt, "turn-2")
	assert.NotContains(t, prompt, "turn-0\n")
	assert.NotContains(t, prompt, "turn-1\n")
	// A MODEL turn sits inside the window, so the note body is not re-sent.
	assert.NotContains(t, prompt, "--- NOTE START ---")
}

func TestStreamChatFirstMessagePromptCarriesNote(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	note := seedNote(store, owner)

	provider := &stubLLM{reply: "ok"}
	svc := newTestChatService(store, provider)

	_, err := svc.StreamChat(context.Background(), owner, note.Id, &dto.SendChatRequest{Message: "first question"})
	require.NoError(t, err)

	prompt := provider.lastPrompt()
	assert.Contains(t, prompt, "--- NOTE START ---")
	assert.Contains(t, prompt, note.Title)
	assert.Contains(t, prompt, note.Content)
	assert.Contains(t, prompt, "USER: first question")
}

func TestGetChatHistoryOrdering(t *testing.T) {
	store := newMemStore()
	owner := uuid.New()
	note := seedNote(store, owner)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		store.turns = append(store.turns, &entity.ChatMessage{
			Id:        uuid.New(),
			NoteId:    note.Id,
			Role:      constant.ChatMessageRoleUser,
			Chat:      fmt.Sprintf("msg-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	svc := newTestChatService(store, &stubLLM{})
	history, err := svc.GetChatHistory(context.Background(), owner, note.Id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "msg-0", history[0].Chat)
	assert.Equal(t, "msg-2", history[2].Chat)
}

func TestGetChatHistoryForbidden(t *testing.T) {
	store := newMemStore()
	note := seedNote(store, uuid.New())

	svc := newTestChatService(store, &stubLLM{})
	_, err := svc.GetChatHistory(context.Background(), uuid.New(), note.Id)
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}
