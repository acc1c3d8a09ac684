package command

import (
	"context"
	"strings"
	"time"
)

// Fixed user-facing strings. Failures never surface raw error detail; they
// degrade to one of these.
const (
	fallbackEmptyOutput    = "Sorry, I could not come up with a reply this time."
	fallbackBackendFailure = "Sorry, something went wrong on my side. Please try again in a moment."
	fallbackPlanParse      = "Sorry, I could not put together an event plan from this conversation."
	emptyHistoryReply      = "There is nothing to summarize yet."
	researchUsageReply     = "Usage: /research <question>"

	helpText = `Kaiwa commands:
/help - show this message
/fortune - today's fortune for the chat
/summary - summarize the recent conversation
/research <question> - answer a question with web sources
/event or /poll - draft an event plan from the conversation`
)

// maxRenderedSources caps how many citation URIs a research reply lists.
const maxRenderedSources = 2

func (r *Router) handleFortune(ctx context.Context) ([]string, error) {
	out, err := r.backend.Generate(ctx, fortunePrompt(time.Now().In(r.loc), r.opts.Timezone))
	if err != nil {
		return nil, err
	}
	return []string{orFallback(out)}, nil
}

func (r *Router) handleSummary(ctx context.Context, conversationID string) ([]string, error) {
	entries := r.store.Recent(conversationID, r.opts.SummaryMaxMessages)
	lines := formatHistory(entries, r.loc, CmdSummary)
	if len(lines) == 0 {
		return []string{emptyHistoryReply}, nil
	}
	out, err := r.backend.Generate(ctx, summaryPrompt(lines, r.opts.Timezone))
	if err != nil {
		return nil, err
	}
	return []string{orFallback(out)}, nil
}

func (r *Router) handleResearch(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return []string{researchUsageReply}, nil
	}
	res, err := r.backend.GenerateWithGrounding(ctx, researchPrompt(query))
	if err != nil {
		return nil, err
	}
	text := orFallback(res.Text)

	sources := res.Sources
	if len(sources) > maxRenderedSources {
		sources = sources[:maxRenderedSources]
	}
	if len(sources) > 0 {
		var sb strings.Builder
		sb.WriteString(text)
		sb.WriteString("\n\nSources:")
		for _, uri := range sources {
			sb.WriteString("\n- ")
			sb.WriteString(uri)
		}
		text = sb.String()
	}
	return []string{text}, nil
}

// orFallback substitutes the fixed fallback string for blank model output.
func orFallback(out string) string {
	if strings.TrimSpace(out) == "" {
		return fallbackEmptyOutput
	}
	return strings.TrimSpace(out)
}
