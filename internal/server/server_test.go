package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viraj-gavade/Thriftify-sub000/internal/cache"
	"github.com/viraj-gavade/Thriftify-sub000/internal/config"
	"github.com/viraj-gavade/Thriftify-sub000/internal/events"
	"github.com/viraj-gavade/Thriftify-sub000/internal/models"
	"github.com/viraj-gavade/Thriftify-sub000/internal/repository"
	"github.com/viraj-gavade/Thriftify-sub000/internal/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		App:      config.AppConfig{Env: "test", Storage: "memory", CORSOrigins: "http://localhost:5173", BodyLimitBytes: 1 << 20},
		JWT:      config.JWTConfig{Secret: "test-secret", AccessTTLMinutes: 60, CookieName: "accessToken"},
		WS:       config.WSConfig{PingIntervalSeconds: 25, WriteDeadlineSeconds: 10, MaxMessageSizeBytes: 64 * 1024, TypingTimeoutSeconds: 6, PresenceTTLSeconds: 90, EventsPerSecond: 20, SendBuffer: 16},
		Security: config.SecurityConfig{PasswordHashCost: 4},
		Chat:     config.ChatConfig{DefaultPageSize: 50, MaxPageSize: 100, MaxMessageLength: 5000},
	}
	cfg.AccessTTL = time.Hour
	cfg.PingInterval = 25 * time.Second
	cfg.WriteDeadline = 10 * time.Second
	cfg.TypingTimeout = 6 * time.Second
	cfg.PresenceTTL = 90 * time.Second
	return cfg
}

type testServer struct {
	*Server
	users *repository.MemoryUserRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, events.NopPublisher{})
}

func newTestServerWith(t *testing.T, pub events.Publisher) *testServer {
	t.Helper()
	users := repository.NewMemoryUserRepo()
	s := New(Dependencies{
		Config:    testConfig(),
		Logger:    zap.NewNop(),
		Users:     users,
		Listings:  repository.NewMemoryListingRepo(),
		Convs:     repository.NewMemoryConversationRepo(),
		Msgs:      repository.NewMemoryMessageRepo(),
		Presence:  cache.NewMemoryPresence(),
		Publisher: pub,
	})
	t.Cleanup(func() {
		s.Hub.Close()
		_ = s.publisher.Close()
	})
	return &testServer{Server: s, users: users}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, utils.Envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.App.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env utils.Envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func into(t *testing.T, data any, dst any) {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

type account struct {
	id    string
	token string
}

func (ts *testServer) signup(t *testing.T, username string) account {
	t.Helper()
	status, env := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var sess struct {
		User        models.User `json:"user"`
		AccessToken string      `json:"accessToken"`
	}
	into(t, env.Data, &sess)
	return account{id: sess.User.ID.Hex(), token: sess.AccessToken}
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.signup(t, "alice"), ts.signup(t, "bob")

	status, env := ts.do(t, http.MethodPost, "/api/v1/chat/conversations", alice.token, map[string]string{"recipientId": bob.id})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.True(t, env.Success)
	var conv models.ConversationView
	into(t, env.Data, &conv)
	require.Len(t, conv.Participants, 2)

	status, env = ts.do(t, http.MethodPost, "/api/v1/chat/conversations", bob.token, map[string]string{"recipientId": alice.id})
	require.Equal(t, http.StatusOK, status)
	var same models.ConversationView
	into(t, env.Data, &same)
	assert.Equal(t, conv.ID, same.ID)

	msgPath := "/api/v1/chat/conversations/" + conv.ID.Hex() + "/messages"
	status, env = ts.do(t, http.MethodPost, msgPath, alice.token, map[string]string{"content": "is the lamp still available?"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var sent models.MessageView
	into(t, env.Data, &sent)
	assert.Equal(t, "alice", sent.Sender.Username)

	status, env = ts.do(t, http.MethodGet, "/api/v1/chat/unread-count", bob.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, env.Data.(map[string]any)["count"])

	status, env = ts.do(t, http.MethodGet, "/api/v1/chat/conversations", bob.token, nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.ConversationView
	into(t, env.Data, &list)
	require.Len(t, list, 1)
	assert.EqualValues(t, 1, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "is the lamp still available?", list[0].LastMessage.Content)

	status, env = ts.do(t, http.MethodGet, msgPath+"?page=1&limit=10", bob.token, nil)
	require.Equal(t, http.StatusOK, status)
	var page models.MessagePage
	into(t, env.Data, &page)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Messages, 1)

	_, env = ts.do(t, http.MethodGet, "/api/v1/chat/unread-count", bob.token, nil)
	assert.EqualValues(t, 0, env.Data.(map[string]any)["count"])

	status, env = ts.do(t, http.MethodPatch, "/api/v1/chat/conversations/"+conv.ID.Hex()+"/read", bob.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)

	// reading leaves the conversation preview alone
	for _, who := range []account{alice, bob} {
		_, env = ts.do(t, http.MethodGet, "/api/v1/chat/conversations", who.token, nil)
		var after []models.ConversationView
		into(t, env.Data, &after)
		require.Len(t, after, 1)
		require.NotNil(t, after[0].LastMessage)
		assert.Equal(t, "is the lamp still available?", after[0].LastMessage.Content)
		assert.Equal(t, alice.id, after[0].LastMessage.Sender.Hex())
		assert.Zero(t, after[0].UnreadCount)
	}
}

// stalledBroker blocks every publish until released.
type stalledBroker struct {
	release chan struct{}
}

func (b *stalledBroker) Publish(ctx context.Context, _ events.Event) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *stalledBroker) Close() error { return nil }

func TestRequestsDoNotWaitForEventBroker(t *testing.T) {
	broker := &stalledBroker{release: make(chan struct{})}
	ts := newTestServerWith(t, broker)
	// registered after the server cleanup, so it runs first and lets the queue drain
	t.Cleanup(func() { close(broker.release) })

	alice, bob := ts.signup(t, "alice"), ts.signup(t, "bob")

	start := time.Now()
	status, env := ts.do(t, http.MethodPost, "/api/v1/chat/conversations", alice.token, map[string]string{"recipientId": bob.id})
	require.Equal(t, http.StatusCreated, status)
	var conv models.ConversationView
	into(t, env.Data, &conv)

	msgPath := "/api/v1/chat/conversations/" + conv.ID.Hex() + "/messages"
	for i := 0; i < 6; i++ {
		status, _ = ts.do(t, http.MethodPost, msgPath, alice.token, map[string]string{"content": "still there?"})
		require.Equal(t, http.StatusCreated, status)
	}
	status, _ = ts.do(t, http.MethodPatch, "/api/v1/chat/conversations/"+conv.ID.Hex()+"/read", bob.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestChatErrors(t *testing.T) {
	ts := newTestServer(t)
	alice, bob, eve := ts.signup(t, "alice"), ts.signup(t, "bob"), ts.signup(t, "eve")

	status, _ := ts.do(t, http.MethodGet, "/api/v1/chat/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/chat/conversations", alice.token, map[string]string{"recipientId": alice.id})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := ts.do(t, http.MethodPost, "/api/v1/chat/conversations", alice.token, map[string]string{"recipientId": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotNil(t, env.Data, "field errors are returned")

	status, _ = ts.do(t, http.MethodPost, "/api/v1/chat/conversations", alice.token, map[string]string{"recipientId": "64b7f0f0f0f0f0f0f0f0f0f0"})
	assert.Equal(t, http.StatusNotFound, status)

	_, env = ts.do(t, http.MethodPost, "/api/v1/chat/conversations", alice.token, map[string]string{"recipientId": bob.id})
	var conv models.ConversationView
	into(t, env.Data, &conv)
	msgPath := "/api/v1/chat/conversations/" + conv.ID.Hex() + "/messages"

	status, _ = ts.do(t, http.MethodGet, msgPath, eve.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = ts.do(t, http.MethodGet, msgPath+"?page=92233720368547760&limit=100", alice.token, nil)
	require.Equal(t, http.StatusOK, status, "a page far past the end is just empty")
	var far models.MessagePage
	into(t, env.Data, &far)
	assert.Empty(t, far.Messages)

	status, _ = ts.do(t, http.MethodPost, msgPath, alice.token, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/chat/conversations/64b7f0f0f0f0f0f0f0f0f0f0/messages", alice.token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// a valid token for a vanished account
	ts.users.Delete(mustObjectID(t, eve.id))
	status, _ = ts.do(t, http.MethodGet, "/api/v1/chat/unread-count", eve.token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListingRoutes(t *testing.T) {
	ts := newTestServer(t)
	seller, buyer := ts.signup(t, "seller"), ts.signup(t, "buyer")

	status, env := ts.do(t, http.MethodPost, "/api/v1/listings", seller.token, map[string]any{
		"title": "Oak desk", "description": "solid oak", "price": 80, "category": "furniture",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var l models.Listing
	into(t, env.Data, &l)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/listings", seller.token, map[string]any{
		"title": "Sword", "description": "sharp", "price": 5, "category": "weapons",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = ts.do(t, http.MethodPost, "/api/v1/chat/conversations", buyer.token, map[string]string{"recipientId": seller.id, "listingId": l.ID.Hex()})
	require.Equal(t, http.StatusCreated, status)
	var conv models.ConversationView
	into(t, env.Data, &conv)
	require.NotNil(t, conv.Listing)
	assert.Equal(t, "Oak desk", conv.Listing.Title)

	status, env = ts.do(t, http.MethodPost, "/api/v1/listings/"+l.ID.Hex()+"/bookmark", buyer.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, env.Data.(map[string]any)["bookmarked"])

	status, env = ts.do(t, http.MethodGet, "/api/v1/users/me/bookmarks", buyer.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, env.Data, 1)

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/listings/"+l.ID.Hex(), buyer.token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodPatch, "/api/v1/listings/"+l.ID.Hex()+"/sold", seller.token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodDelete, "/api/v1/listings/"+l.ID.Hex(), seller.token, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = ts.do(t, http.MethodGet, "/api/v1/listings", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, env.Data.(map[string]any)["total"])

	status, _ = ts.do(t, http.MethodPost, "/api/v1/listings/images/upload-url", seller.token, map[string]string{"filename": "a.jpg", "contentType": "image/jpeg"})
	assert.Equal(t, http.StatusNotFound, status, "upload route only exists with a bucket")
}

func TestAuthRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signup(t, "alice")

	status, _ := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, env := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotNil(t, env.Data)

	status, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "alice", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"identifier": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, env.Data.(map[string]any)["accessToken"])

	status, env = ts.do(t, http.MethodGet, "/api/v1/auth/me", alice.token, nil)
	require.Equal(t, http.StatusOK, status)
	me := env.Data.(map[string]any)
	assert.Equal(t, "alice", me["username"])
	assert.NotContains(t, me, "passwordHash")
	assert.NotContains(t, me, "orders")

	status, env = ts.do(t, http.MethodGet, "/api/v1/users/"+alice.id+"/presence", alice.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, env.Data.(map[string]any)["online"])
}

func TestOperationalRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	resp, err := ts.App.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ = ts.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)

	status, env = ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func mustObjectID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
