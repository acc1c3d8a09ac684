package webhook_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kaiwa-bot/kaiwa/internal/backend"
	"github.com/kaiwa-bot/kaiwa/internal/command"
	"github.com/kaiwa-bot/kaiwa/internal/memory"
	"github.com/kaiwa-bot/kaiwa/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend fails on the prompts it is told to and echoes otherwise.
type scriptedBackend struct {
	calls    int
	failCall int // 1-based call number to fail, 0 never
}

func (s *scriptedBackend) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.calls == s.failCall {
		return "", errors.New("backend unavailable")
	}
	return "generated text", nil
}

func (s *scriptedBackend) GenerateWithGrounding(ctx context.Context, prompt string) (backend.GroundedResult, error) {
	text, err := s.Generate(ctx, prompt)
	return backend.GroundedResult{Text: text}, err
}

type captureReplier struct {
	tokens []string
	texts  [][]string
}

func (c *captureReplier) Reply(_ context.Context, replyToken string, texts []string) error {
	c.tokens = append(c.tokens, replyToken)
	c.texts = append(c.texts, texts)
	return nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newStack(secret string) (*gin.Engine, *memory.Store, *scriptedBackend, *captureReplier) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore(memory.StoreConfig{HistoryLimit: 10})
	b := &scriptedBackend{}
	rep := &captureReplier{}
	router := command.NewRouter(store, b, rep, command.Options{Timezone: "UTC"})
	gateway := webhook.NewGateway(secret, router)
	engine := gin.New()
	engine.POST("/callback", gateway.Handler())
	return engine, store, b, rep
}

// TestUnauthenticatedDeliveryLeavesStoreUntouched is end-to-end scenario D:
// a missing signature rejects the request before any store mutation.
func TestUnauthenticatedDeliveryLeavesStoreUntouched(t *testing.T) {
	engine, store, _, rep := newStack("secret")
	body := []byte(`{"events":[{"type":"message","replyToken":"tok","source":{"userId":"u1"},"message":{"type":"text","text":"hello"}}]}`)

	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, store.Len(), "store must remain empty")
	assert.Empty(t, rep.tokens)
}

// TestBatchSurvivesOneFailingEvent is end-to-end scenario E: the first
// event's backend call fails, the second event in the same delivery is still
// processed and its reply attempted.
func TestBatchSurvivesOneFailingEvent(t *testing.T) {
	engine, store, b, rep := newStack("secret")
	b.failCall = 1

	body := []byte(`{"events":[
		{"type":"message","replyToken":"t1","source":{"userId":"u1"},"message":{"type":"text","text":"/fortune"}},
		{"type":"message","replyToken":"t2","source":{"userId":"u2"},"message":{"type":"text","text":"/fortune"}}
	]}`)
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set(webhook.SignatureHeader, signBody("secret", body))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rep.tokens, 2, "both events must attempt a reply")
	assert.Equal(t, []string{"t1", "t2"}, rep.tokens)
	// The failing event degrades to apology text; the sibling replies normally.
	assert.NotEqual(t, rep.texts[0], rep.texts[1])
	assert.Equal(t, []string{"generated text"}, rep.texts[1])
	assert.Equal(t, 2, store.Len())
}
