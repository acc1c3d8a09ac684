package webhook

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/kaiwa-bot/kaiwa/internal/api/middleware"
	apperrors "github.com/kaiwa-bot/kaiwa/internal/errors"
	log "github.com/sirupsen/logrus"
)

// SignatureHeader is the request header carrying the payload signature.
const SignatureHeader = "X-Line-Signature"

// Dispatcher routes a single verified event. Implementations must scope any
// failure to the one event; the gateway additionally recovers panics so a
// bad event never aborts its siblings.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

// Gateway is the thin boundary handler for webhook deliveries: verify the
// signature, decode the envelope, then hand events to the dispatcher one at
// a time. Sequential processing preserves per-conversation arrival order
// within a delivery.
type Gateway struct {
	verifier   atomic.Pointer[SignatureVerifier]
	dispatcher Dispatcher
}

// NewGateway creates a gateway using the given channel secret and dispatcher.
func NewGateway(channelSecret string, dispatcher Dispatcher) *Gateway {
	g := &Gateway{dispatcher: dispatcher}
	g.verifier.Store(NewSignatureVerifier(channelSecret))
	return g
}

// UpdateSecret swaps the signature verifier, used on config hot reload.
func (g *Gateway) UpdateSecret(channelSecret string) {
	g.verifier.Store(NewSignatureVerifier(channelSecret))
}

// Handler returns the gin handler for the webhook callback endpoint.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			appErr := apperrors.BadRequest(err)
			c.Data(appErr.HTTPStatusCode, "application/json", appErr.ToJSON())
			return
		}

		if !g.verifier.Load().Verify(rawBody, c.GetHeader(SignatureHeader)) {
			appErr := apperrors.Unauthorized(nil)
			log.WithField("client_ip", c.ClientIP()).Warn("webhook signature verification failed")
			c.Data(appErr.HTTPStatusCode, "application/json", appErr.ToJSON())
			return
		}

		env, err := ParseEnvelope(rawBody)
		if err != nil {
			appErr := apperrors.BadRequest(err)
			c.Data(appErr.HTTPStatusCode, "application/json", appErr.ToJSON())
			return
		}

		for i := range env.Events {
			middleware.RecordWebhookEvent(env.Events[i].Type)
			g.dispatchOne(c.Request.Context(), env.Events[i])
		}
		c.Status(http.StatusOK)
	}
}

// dispatchOne isolates a single event: a panic or error inside one event's
// handling is logged and does not propagate to sibling events.
func (g *Gateway) dispatchOne(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"panic":        r,
				"event_type":   event.Type,
				"conversation": event.ConversationID(),
			}).Error("recovered from event handler panic")
		}
	}()
	g.dispatcher.Dispatch(ctx, event)
}
