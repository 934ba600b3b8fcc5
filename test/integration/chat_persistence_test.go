package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"notechat-be/internal/constant"
	"notechat-be/internal/entity"
	"notechat-be/internal/repository/specification"
	"notechat-be/internal/repository/unitofwork"
	"notechat-be/pkg/chat/history"
	"notechat-be/pkg/chat/message"
	"notechat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	return unitofwork.NewRepositoryFactory(gormDB)
}

func seedDBNote(t *testing.T, factory unitofwork.RepositoryFactory) *entity.Note {
	t.Helper()
	ctx := context.Background()
	uow := factory.NewUnitOfWork(ctx)

	hash := "not-a-real-hash"
	owner := &entity.User{
		Id:           uuid.New(),
		Email:        fmt.Sprintf("it-%s@example.com", uuid.New()),
		FullName:     "Integration Owner",
		PasswordHash: &hash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, uow.UserRepository().Create(ctx, owner))

	note := &entity.Note{
		Id:             uuid.New(),
		Title:          "Integration Note",
		Content:        "body",
		UserId:         owner.Id,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, uow.NoteRepository().Create(ctx, note))

	t.Cleanup(func() {
		cleanupUow := factory.NewUnitOfWork(context.Background())
		_ = cleanupUow.ChatMessageRepository().DeleteByNoteId(context.Background(), note.Id)
		_ = cleanupUow.NoteRepository().Delete(context.Background(), note.Id)
	})

	return note
}

func TestSaveTurnRoundTrip(t *testing.T) {
	factory := testDB(t)
	ctx := context.Background()
	note := seedDBNote(t, factory)

	saver := message.NewSaver(factory)
	loader := history.NewLoader(factory)

	userTurn, err := saver.SaveTurn(ctx, note.Id, constant.ChatMessageRoleUser, "hello db")
	require.NoError(t, err)
	require.NotNil(t, userTurn)

	modelTurn, err := saver.SaveTurn(ctx, note.Id, constant.ChatMessageRoleModel, "hello user")
	require.NoError(t, err)
	require.NotNil(t, modelTurn)

	turns, err := loader.FullHistory(ctx, note.Id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, turns[0].Role)
	assert.Equal(t, constant.ChatMessageRoleModel, turns[1].Role)
}

func TestSaveTurnMissingNote(t *testing.T) {
	factory := testDB(t)

	saver := message.NewSaver(factory)
	turn, err := saver.SaveTurn(context.Background(), uuid.New(), constant.ChatMessageRoleUser, "orphan")
	assert.Error(t, err)
	assert.Nil(t, turn)
}

func TestRecentWindowLimit(t *testing.T) {
	factory := testDB(t)
	ctx := context.Background()
	note := seedDBNote(t, factory)

	saver := message.NewSaver(factory)
	for i := 0; i < 12; i++ {
		_, err := saver.SaveTurn(ctx, note.Id, constant.ChatMessageRoleUser, fmt.Sprintf("turn-%d", i))
		require.NoError(t, err)
		// created_at has to tick between rows for the ordering to be stable
		time.Sleep(5 * time.Millisecond)
	}

	loader := history.NewLoader(factory)
	window, err := loader.RecentWindow(ctx, note.Id, 10)
	require.NoError(t, err)
	require.Len(t, window, 10)
	assert.Equal(t, "turn-2", window[0].Chat)
	assert.Equal(t, "turn-11", window[9].Chat)
}

func TestModelTurnBumpsLastActivity(t *testing.T) {
	factory := testDB(t)
	ctx := context.Background()
	note := seedDBNote(t, factory)

	saver := message.NewSaver(factory)
	_, err := saver.SaveTurn(ctx, note.Id, constant.ChatMessageRoleModel, "reply")
	require.NoError(t, err)

	uow := factory.NewUnitOfWork(ctx)
	refreshed, err := uow.NoteRepository().FindOne(ctx, specification.ByID{ID: note.Id})
	require.NoError(t, err)
	require.NotNil(t, refreshed)
	assert.True(t, refreshed.LastActivityAt.After(note.LastActivityAt))
}
