// Package command implements the routing state machine over a single inbound
// event: filter, record, match, handle, reply. Each handler assembles a
// deterministic prompt (optionally embedding recent history), queries the
// text-generation backend, and formats exactly one reply.
package command

import (
	"context"
	"strings"
	"time"

	"github.com/kaiwa-bot/kaiwa/internal/api/middleware"
	"github.com/kaiwa-bot/kaiwa/internal/backend"
	"github.com/kaiwa-bot/kaiwa/internal/memory"
	"github.com/kaiwa-bot/kaiwa/internal/reply"
	"github.com/kaiwa-bot/kaiwa/internal/webhook"
	log "github.com/sirupsen/logrus"
)

// Command tags the outcome of classifying a message.
type Command int

const (
	// CmdNone means the message matched no command; processing is a no-op.
	CmdNone Command = iota
	CmdHelp
	CmdFortune
	CmdSummary
	CmdResearch
	CmdEventPlan
)

// String returns the command name used for logging and metrics.
func (c Command) String() string {
	switch c {
	case CmdHelp:
		return "help"
	case CmdFortune:
		return "fortune"
	case CmdSummary:
		return "summary"
	case CmdResearch:
		return "research"
	case CmdEventPlan:
		return "event-plan"
	default:
		return "none"
	}
}

// Classify tests the trimmed message text against the fixed, ordered set of
// command patterns: case-insensitive, prefix-anchored, first match wins. The
// second return value is the command argument (only research has one).
func Classify(text string) (Command, string) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "/help"):
		return CmdHelp, ""
	case strings.HasPrefix(lower, "/fortune"):
		return CmdFortune, ""
	case strings.HasPrefix(lower, "/summary"):
		return CmdSummary, ""
	case strings.HasPrefix(lower, "/research"):
		return CmdResearch, strings.TrimSpace(trimmed[len("/research"):])
	case strings.HasPrefix(lower, "/event"), strings.HasPrefix(lower, "/poll"):
		return CmdEventPlan, ""
	default:
		return CmdNone, ""
	}
}

// Options configures prompt assembly.
type Options struct {
	// SummaryMaxMessages bounds how much history handlers embed in prompts.
	SummaryMaxMessages int
	// Timezone is the IANA zone name used in prompt text and plan rendering.
	Timezone string
}

// Router selects and runs the handler for an incoming event.
type Router struct {
	store   *memory.Store
	backend backend.Client
	replier reply.Client
	opts    Options
	loc     *time.Location
}

// NewRouter wires the router to its collaborators. An unknown timezone name
// falls back to UTC.
func NewRouter(store *memory.Store, b backend.Client, r reply.Client, opts Options) *Router {
	if opts.SummaryMaxMessages <= 0 {
		opts.SummaryMaxMessages = 30
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		log.Warnf("unknown timezone %q, using UTC", opts.Timezone)
		loc = time.UTC
	}
	return &Router{store: store, backend: b, replier: r, opts: opts, loc: loc}
}

// Dispatch runs the state machine for one event. Terminal after one reply or
// no-op; any failure is logged and scoped to this event.
func (r *Router) Dispatch(ctx context.Context, ev webhook.Event) {
	// Filter: only text messages with a reply target are handled.
	if ev.Type != "message" || ev.Message.Type != "text" || ev.ReplyToken == "" {
		return
	}

	// Record before matching so commands themselves contribute to history;
	// handlers filter their own invocations back out at prompt time.
	conversationID := ev.ConversationID()
	ts := ev.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	r.store.Append(conversationID, memory.Entry{
		Sender:    ev.Source.UserID,
		Text:      ev.Message.Text,
		Timestamp: ts,
	})

	cmd, arg := Classify(ev.Message.Text)
	if cmd == CmdNone {
		return
	}
	middleware.RecordCommand(cmd.String())
	log.WithFields(log.Fields{
		"command":      cmd.String(),
		"conversation": conversationID,
	}).Info("dispatching command")

	texts, err := r.handle(ctx, cmd, arg, conversationID)
	if err != nil {
		log.WithFields(log.Fields{
			"command":      cmd.String(),
			"conversation": conversationID,
		}).Errorf("handler failed: %v", err)
		texts = []string{fallbackBackendFailure}
	}

	if errReply := r.replier.Reply(ctx, ev.ReplyToken, texts); errReply != nil {
		log.WithFields(log.Fields{
			"command":      cmd.String(),
			"conversation": conversationID,
		}).Errorf("reply delivery failed: %v", errReply)
	}
}

// handle runs the matched command's handler and returns the reply texts.
func (r *Router) handle(ctx context.Context, cmd Command, arg, conversationID string) ([]string, error) {
	switch cmd {
	case CmdHelp:
		return []string{helpText}, nil
	case CmdFortune:
		return r.handleFortune(ctx)
	case CmdSummary:
		return r.handleSummary(ctx, conversationID)
	case CmdResearch:
		return r.handleResearch(ctx, arg)
	case CmdEventPlan:
		return r.handleEventPlan(ctx, conversationID)
	default:
		return nil, nil
	}
}
