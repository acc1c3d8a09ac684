package webhook

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// recordingDispatcher captures dispatched events and can panic on demand.
type recordingDispatcher struct {
	events  []Event
	panicOn map[string]bool // reply token -> panic
}

func (d *recordingDispatcher) Dispatch(_ context.Context, ev Event) {
	d.events = append(d.events, ev)
	if d.panicOn[ev.ReplyToken] {
		panic("handler blew up")
	}
}

func newTestGateway(secret string) (*Gateway, *recordingDispatcher, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	dispatcher := &recordingDispatcher{panicOn: map[string]bool{}}
	gateway := NewGateway(secret, dispatcher)
	engine := gin.New()
	engine.POST("/callback", gateway.Handler())
	return gateway, dispatcher, engine
}

func postCallback(engine *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGatewayRejectsMissingSignature(t *testing.T) {
	_, dispatcher, engine := newTestGateway("secret")

	w := postCallback(engine, []byte(`{"events":[{"type":"message"}]}`), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "signature_invalid", gjson.Get(w.Body.String(), "code").String())
	// Rejected before any event processing: nothing reached the dispatcher.
	assert.Empty(t, dispatcher.events)
}

func TestGatewayRejectsBadSignature(t *testing.T) {
	_, dispatcher, engine := newTestGateway("secret")
	body := []byte(`{"events":[]}`)

	w := postCallback(engine, body, sign("wrong-secret", body))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, dispatcher.events)
}

func TestGatewayRejectsMalformedEnvelope(t *testing.T) {
	_, dispatcher, engine := newTestGateway("secret")

	for _, body := range []string{`not json`, `{"destination":"d"}`} {
		w := postCallback(engine, []byte(body), sign("secret", []byte(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
		assert.Equal(t, "envelope_invalid", gjson.Get(w.Body.String(), "code").String())
	}
	assert.Empty(t, dispatcher.events)
}

func TestGatewayDispatchesEventsInOrder(t *testing.T) {
	_, dispatcher, engine := newTestGateway("secret")
	body := []byte(`{"events":[
		{"type":"message","replyToken":"t1","source":{"userId":"u1"},"message":{"type":"text","text":"one"}},
		{"type":"message","replyToken":"t2","source":{"userId":"u1"},"message":{"type":"text","text":"two"}}
	]}`)

	w := postCallback(engine, body, sign("secret", body))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.events, 2)
	assert.Equal(t, "one", dispatcher.events[0].Message.Text)
	assert.Equal(t, "two", dispatcher.events[1].Message.Text)
}

func TestGatewayIsolatesEventFailures(t *testing.T) {
	_, dispatcher, engine := newTestGateway("secret")
	dispatcher.panicOn["t1"] = true
	body := []byte(`{"events":[
		{"type":"message","replyToken":"t1","source":{"userId":"u1"},"message":{"type":"text","text":"boom"}},
		{"type":"message","replyToken":"t2","source":{"userId":"u2"},"message":{"type":"text","text":"fine"}}
	]}`)

	w := postCallback(engine, body, sign("secret", body))

	// The first event's panic is contained; the sibling is still processed
	// and the delivery as a whole succeeds.
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.events, 2)
	assert.Equal(t, "fine", dispatcher.events[1].Message.Text)
}

func TestGatewayUpdateSecret(t *testing.T) {
	gateway, dispatcher, engine := newTestGateway("old-secret")
	body := []byte(`{"events":[]}`)

	gateway.UpdateSecret("new-secret")

	w := postCallback(engine, body, sign("old-secret", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postCallback(engine, body, sign("new-secret", body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dispatcher.events)
}
