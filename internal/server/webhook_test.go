package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testToken = "123456:ABC-def"

type fakeSubmitter struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
	err     error
}

func (f *fakeSubmitter) TrySubmit(update tgbotapi.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeSubmitter) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestWebhookAcceptsUpdate(t *testing.T) {
	sub := &fakeSubmitter{}
	router := NewRouter(testToken, sub)

	body := `{"update_id":77,"message":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"/predict"}}`
	w := serve(router, http.MethodPost, "/bot"+testToken, body)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, sub.updates, 1)
	assert.Equal(t, 77, sub.updates[0].UpdateID)
	require.NotNil(t, sub.updates[0].Message)
	assert.Equal(t, int64(42), sub.updates[0].Message.Chat.ID)
	assert.Equal(t, "/predict", sub.updates[0].Message.Text)
}

func TestWebhookRejectsMalformedBody(t *testing.T) {
	sub := &fakeSubmitter{}
	router := NewRouter(testToken, sub)

	for _, body := range []string{"", "{", `{"update_id":"x"}`} {
		w := serve(router, http.MethodPost, "/bot"+testToken, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, sub.updates)
}

func TestWebhookWrongToken(t *testing.T) {
	sub := &fakeSubmitter{}
	router := NewRouter(testToken, sub)

	w := serve(router, http.MethodPost, "/bot999:other", `{"update_id":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, sub.updates)
}

func TestWebhookQueueFull(t *testing.T) {
	router := NewRouter(testToken, &fakeSubmitter{err: ErrQueueFull})

	w := serve(router, http.MethodPost, "/bot"+testToken, `{"update_id":1}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHelloAndHealth(t *testing.T) {
	sub := &fakeSubmitter{}
	router := NewRouter(testToken, sub)

	w := serve(router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HelloText, w.Body.String())

	w = serve(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 0, health["pending"])
}

func TestWebhookFeedsDispatcher(t *testing.T) {
	var mu sync.Mutex
	var chats []int64
	d := NewDispatcher(UpdateHandlerFunc(func(_ context.Context, u tgbotapi.Update) error {
		mu.Lock()
		defer mu.Unlock()
		chats = append(chats, u.Message.Chat.ID)
		return nil
	}), 4)
	router := NewRouter(testToken, d)

	for _, body := range []string{
		`{"update_id":1,"message":{"message_id":1,"date":0,"chat":{"id":5,"type":"private"},"text":"ETH"}}`,
		`{"update_id":2,"message":{"message_id":2,"date":0,"chat":{"id":6,"type":"private"},"text":"UNI"}}`,
	} {
		require.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/bot"+testToken, body).Code)
	}
	assert.Equal(t, 2, d.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{5, 6}, chats)
}
