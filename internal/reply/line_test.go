package reply

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestReplySendsTextMessages(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewLineClient("channel-token").WithBaseURL(srv.URL)
	err := c.Reply(context.Background(), "reply-tok", []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, "/v2/bot/message/reply", gotPath)
	assert.Equal(t, "Bearer channel-token", gotAuth)
	assert.Equal(t, "reply-tok", gjson.GetBytes(gotBody, "replyToken").String())
	require.Equal(t, int64(2), gjson.GetBytes(gotBody, "messages.#").Int())
	assert.Equal(t, "text", gjson.GetBytes(gotBody, "messages.0.type").String())
	assert.Equal(t, "first", gjson.GetBytes(gotBody, "messages.0.text").String())
	assert.Equal(t, "second", gjson.GetBytes(gotBody, "messages.1.text").String())
}

func TestReplyTruncatesOverCap(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("msg %d", i)
	}
	c := NewLineClient("tok").WithBaseURL(srv.URL)
	require.NoError(t, c.Reply(context.Background(), "r", texts))

	assert.Equal(t, int64(maxMessagesPerReply), gjson.GetBytes(gotBody, "messages.#").Int())
}

func TestReplyNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	c := NewLineClient("tok").WithBaseURL(srv.URL)
	err := c.Reply(context.Background(), "used-token", []string{"hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "Invalid reply token")
}
