package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"notechat-be/internal/dto"
	"notechat-be/internal/entity"
	"notechat-be/internal/pkg/apperror"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	payloads [][]byte
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestNoteService(store *memStore) (INoteService, *capturingPublisher, *gocache.Cache) {
	pub := &capturingPublisher{}
	cache := gocache.New(time.Minute, time.Minute)
	svc := NewNoteService(&memFactory{store: store}, pub, nil, cache)
	return svc, pub, cache
}

func TestNoteCreatePublishesActivity(t *testing.T) {
	store := newMemStore()
	svc, pub, _ := newTestNoteService(store)
	owner := uuid.New()

	res, err := svc.Create(context.Background(), owner, &dto.CreateNoteRequest{Title: "T", Content: "C"})
	require.NoError(t, err)
	require.NotNil(t, res)

	require.Len(t, pub.payloads, 1)
	var msg dto.PublishNoteTouchedMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, res.Id, msg.NoteId)

	assert.NotNil(t, store.notes[res.Id])
}

func TestNoteUpdateOwnerOnly(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestNoteService(store)
	owner := uuid.New()
	note := seedNote(store, owner)

	_, err := svc.Update(context.Background(), uuid.New(), &dto.UpdateNoteRequest{Id: note.Id, Title: "X"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	res, err := svc.Update(context.Background(), owner, &dto.UpdateNoteRequest{Id: note.Id, Title: "X", Content: "Y"})
	require.NoError(t, err)
	assert.Equal(t, note.Id, res.Id)
	assert.Equal(t, "X", store.notes[note.Id].Title)
}

func TestNoteDeleteRemovesConversation(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestNoteService(store)
	owner := uuid.New()
	note := seedNote(store, owner)
	store.turns = append(store.turns, &entity.ChatMessage{
		Id:     uuid.New(),
		NoteId: note.Id,
		Role:   "USER",
		Chat:   "hello",
	})

	require.NoError(t, svc.Delete(context.Background(), owner, note.Id))
	assert.Nil(t, store.notes[note.Id])
	assert.Empty(t, noteTurns(store, note.Id))
}

func TestNoteShare(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestNoteService(store)
	owner := uuid.New()
	note := seedNote(store, owner)

	target := &entity.User{Id: uuid.New(), Email: "friend@example.com", FullName: "Friend"}
	store.users[target.Id] = target

	require.NoError(t, svc.Share(context.Background(), owner, &dto.ShareNoteRequest{Id: note.Id, Email: target.Email}))
	assert.Equal(t, []uuid.UUID{target.Id}, store.collab[note.Id])

	// Sharing twice is a conflict
	err := svc.Share(context.Background(), owner, &dto.ShareNoteRequest{Id: note.Id, Email: target.Email})
	require.Error(t, err)

	// Unknown email
	err = svc.Share(context.Background(), owner, &dto.ShareNoteRequest{Id: note.Id, Email: "nobody@example.com"})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestNoteRecentUsesCache(t *testing.T) {
	store := newMemStore()
	svc, _, cache := newTestNoteService(store)
	owner := uuid.New()
	seedNote(store, owner)

	first, err := svc.Recent(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// A cached list is served as-is, even when the table changes underneath.
	seedNote(store, owner)
	second, err := svc.Recent(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	cache.Flush()
	third, err := svc.Recent(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}
