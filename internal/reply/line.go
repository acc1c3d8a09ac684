// Package reply delivers formatted replies through the messaging platform's
// reply API using the event's single-use reply token.
package reply

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kaiwa-bot/kaiwa/internal/api/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/sjson"
)

const lineDefaultBaseURL = "https://api.line.me"

// maxMessagesPerReply is the platform cap on messages per reply call.
const maxMessagesPerReply = 5

// Client is the reply-delivery collaborator contract. Used exactly once per
// handled event that produces a reply.
type Client interface {
	Reply(ctx context.Context, replyToken string, texts []string) error
}

// statusErr carries a non-success delivery status and body.
type statusErr struct {
	code int
	body string
}

func (e statusErr) Error() string {
	return fmt.Sprintf("reply delivery failed with status %d: %s", e.code, e.body)
}

// LineClient posts text messages to the platform reply endpoint.
type LineClient struct {
	channelToken string
	baseURL      string
	httpc        *http.Client
}

// NewLineClient creates a reply client authenticated by the channel token.
func NewLineClient(channelToken string) *LineClient {
	return &LineClient{
		channelToken: channelToken,
		baseURL:      lineDefaultBaseURL,
		httpc:        &http.Client{},
	}
}

// WithBaseURL overrides the API base URL, used by tests.
func (c *LineClient) WithBaseURL(baseURL string) *LineClient {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// Reply implements Client. Each text becomes one message object; texts
// beyond the platform cap are dropped with a warning.
func (c *LineClient) Reply(ctx context.Context, replyToken string, texts []string) (err error) {
	defer func() {
		if err != nil {
			middleware.RecordReply("error")
		} else {
			middleware.RecordReply("ok")
		}
	}()

	if len(texts) > maxMessagesPerReply {
		log.Warnf("reply client: dropping %d messages over the per-reply cap", len(texts)-maxMessagesPerReply)
		texts = texts[:maxMessagesPerReply]
	}

	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "replyToken", replyToken)
	for i, text := range texts {
		body, _ = sjson.SetBytes(body, fmt.Sprintf("messages.%d.type", i), "text")
		body, _ = sjson.SetBytes(body, fmt.Sprintf("messages.%d.text", i), text)
	}

	url := c.baseURL + "/v2/bot/message/reply"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.channelToken)

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			log.Errorf("reply client: close response body error: %v", errClose)
		}
	}()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		b, _ := io.ReadAll(httpResp.Body)
		return statusErr{code: httpResp.StatusCode, body: string(b)}
	}
	return nil
}
