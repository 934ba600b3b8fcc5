package integration

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"notechat-be/internal/bootstrap"
	"notechat-be/internal/config"
	"notechat-be/internal/server"
	"notechat-be/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testApp(t *testing.T) *fiber.App {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		t.Logf("Warning: Could not load ../../.env: %v", err)
		os.Setenv("JWT_SECRET", "default_secret")
	}
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	container := bootstrap.NewContainer(db, cfg)
	return server.New(cfg, container).GetApp()
}

func doJSON(t *testing.T, app *fiber.App, method, path, token, body string) (int, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := app.Test(req, 15000)
	require.NoError(t, err)
	defer res.Body.Close()

	var envelope apiEnvelope
	_ = json.NewDecoder(res.Body).Decode(&envelope)
	return res.StatusCode, envelope
}

func registerAndLogin(t *testing.T, app *fiber.App) (string, string) {
	t.Helper()
	email := fmt.Sprintf("flow-%s@example.com", uuid.New())

	status, _ := doJSON(t, app, "POST", "/api/auth/v1/register", "",
		fmt.Sprintf(`{"email":%q,"password":"secret-password","full_name":"Flow Tester"}`, email))
	require.Equal(t, fiber.StatusOK, status)

	status, body := doJSON(t, app, "POST", "/api/auth/v1/login", "",
		fmt.Sprintf(`{"email":%q,"password":"secret-password"}`, email))
	require.Equal(t, fiber.StatusOK, status)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &login))
	require.NotEmpty(t, login.Token)

	return email, login.Token
}

func TestNoteChatFlow(t *testing.T) {
	app := testApp(t)

	_, ownerToken := registerAndLogin(t, app)
	collabEmail, collabToken := registerAndLogin(t, app)

	// Create a note
	status, body := doJSON(t, app, "POST", "/api/note/v1", ownerToken,
		`{"title":"Flow Note","content":"flow body"}`)
	require.Equal(t, fiber.StatusOK, status)

	var created struct {
		Id uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &created))

	notePath := "/api/note/v1/" + created.Id.String()

	// Fresh note has no conversation yet
	status, body = doJSON(t, app, "GET", notePath+"/chat", ownerToken, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "[]", strings.TrimSpace(string(body.Data)))

	// A stranger cannot read it
	status, _ = doJSON(t, app, "GET", notePath+"/chat", collabToken, "")
	assert.Equal(t, fiber.StatusForbidden, status)

	// Share and retry
	status, _ = doJSON(t, app, "POST", notePath+"/share", ownerToken,
		fmt.Sprintf(`{"email":%q}`, collabEmail))
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "GET", notePath+"/chat", collabToken, "")
	assert.Equal(t, fiber.StatusOK, status)

	// Only the owner may delete
	status, _ = doJSON(t, app, "DELETE", notePath, collabToken, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "DELETE", notePath, ownerToken, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAuthValidation(t *testing.T) {
	app := testApp(t)

	// Malformed register payloads are rejected before any service call
	status, _ := doJSON(t, app, "POST", "/api/auth/v1/register", "",
		`{"email":"not-an-email","password":"short","full_name":""}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// Unknown credentials
	status, _ = doJSON(t, app, "POST", "/api/auth/v1/login", "",
		`{"email":"ghost@example.com","password":"whatever-123"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	// Protected routes demand a token
	status, _ = doJSON(t, app, "GET", "/api/note/v1/recent", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
