// Package backend provides the text-generation client used by command
// handlers. The backend is treated as a black-box completion service; the
// grounded variant additionally surfaces citation URIs when the model used
// web retrieval.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kaiwa-bot/kaiwa/internal/api/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GroundedResult is generated text plus the citation URIs the backend used,
// deduplicated in first-seen order.
type GroundedResult struct {
	Text    string
	Sources []string
}

// Client is the text-generation collaborator contract.
type Client interface {
	// Generate returns the model's text for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateWithGrounding is Generate with web grounding enabled.
	GenerateWithGrounding(ctx context.Context, prompt string) (GroundedResult, error)
}

// statusErr carries a non-success upstream status and body.
type statusErr struct {
	code int
	msg  string
}

func (e statusErr) Error() string {
	return fmt.Sprintf("backend request failed with status %d: %s", e.code, e.msg)
}

// StatusCode extracts the upstream status code from an error, or 0.
func StatusCode(err error) int {
	var se statusErr
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// GeminiClient calls the Gemini generateContent endpoint. Calls carry no
// client-side timeout or retry; a slow backend simply delays the one event
// being handled.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// NewGeminiClient creates a client for the given API key and model.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiDefaultBaseURL,
		httpc:   &http.Client{},
	}
}

// WithBaseURL overrides the API base URL, used by tests.
func (c *GeminiClient) WithBaseURL(baseURL string) *GeminiClient {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

// Generate implements Client.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	data, err := c.generateContent(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	return candidateText(data), nil
}

// GenerateWithGrounding implements Client.
func (c *GeminiClient) GenerateWithGrounding(ctx context.Context, prompt string) (GroundedResult, error) {
	data, err := c.generateContent(ctx, prompt, true)
	if err != nil {
		return GroundedResult{}, err
	}
	return GroundedResult{
		Text:    candidateText(data),
		Sources: groundingSources(data),
	}, nil
}

func (c *GeminiClient) generateContent(ctx context.Context, prompt string, grounding bool) (_ []byte, err error) {
	defer func() {
		if err != nil {
			middleware.RecordBackendRequest("error")
		} else {
			middleware.RecordBackendRequest("ok")
		}
	}()

	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "contents.0.role", "user")
	body, _ = sjson.SetBytes(body, "contents.0.parts.0.text", prompt)
	if grounding {
		body, _ = sjson.SetRawBytes(body, "tools.0.google_search", []byte(`{}`))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errClose := httpResp.Body.Close(); errClose != nil {
			log.Errorf("gemini client: close response body error: %v", errClose)
		}
	}()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		log.Debugf("gemini client: error status %d, body: %s", httpResp.StatusCode, data)
		return nil, statusErr{code: httpResp.StatusCode, msg: string(data)}
	}
	return data, nil
}

// candidateText joins the text parts of the first candidate.
func candidateText(data []byte) string {
	var sb strings.Builder
	for _, part := range gjson.GetBytes(data, "candidates.0.content.parts").Array() {
		sb.WriteString(part.Get("text").String())
	}
	return sb.String()
}

// groundingSources collects citation URIs from the first candidate's
// grounding metadata, deduplicated in first-seen order.
func groundingSources(data []byte) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, chunk := range gjson.GetBytes(data, "candidates.0.groundingMetadata.groundingChunks").Array() {
		uri := chunk.Get("web.uri").String()
		if uri == "" {
			continue
		}
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		out = append(out, uri)
	}
	return out
}
