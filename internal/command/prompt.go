package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaiwa-bot/kaiwa/internal/memory"
)

// historyLineLayout formats the timestamp column of embedded history lines.
const historyLineLayout = "2006-01-02 15:04"

// formatHistory renders entries as "timestamp | sender | text" lines, oldest
// first. Invocations of exclude are filtered out so a command never sees its
// own trigger in the embedded history.
func formatHistory(entries []memory.Entry, loc *time.Location, exclude Command) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if cmd, _ := Classify(e.Text); cmd == exclude {
			continue
		}
		sender := e.Sender
		if sender == "" {
			sender = "unknown"
		}
		ts := time.UnixMilli(e.Timestamp).In(loc).Format(historyLineLayout)
		lines = append(lines, ts+" | "+sender+" | "+e.Text)
	}
	return lines
}

func summaryPrompt(lines []string, timezone string) string {
	return fmt.Sprintf(`You are a helpful chat assistant. Summarize the conversation below in a few short sentences. Keep participant names, decisions and open items. Timestamps are in %s.

Conversation:
%s`, timezone, strings.Join(lines, "\n"))
}

func fortunePrompt(now time.Time, timezone string) string {
	return fmt.Sprintf(`You are a cheerful fortune teller. Write today's fortune for this chat: one or two upbeat sentences plus one concrete small suggestion for the day. Today is %s (%s time). Reply with the fortune only.`,
		now.Format("2006-01-02"), timezone)
}

func researchPrompt(query string) string {
	return fmt.Sprintf(`Answer the following question concisely and factually in a few sentences. Do not include inline citations; sources are listed separately.

Question: %s`, query)
}

func planPrompt(lines []string, timezone string) string {
	return fmt.Sprintf(`You are an event-planning assistant for a group chat. Read the conversation below and propose one concrete event plan.

Respond with ONLY a JSON object, no code fences and no commentary, using exactly these fields:
{"title": string, "datetime": "YYYY-MM-DD HH:MM", "durationMinutes": number, "location": string, "participants": [string], "openQuestions": [string], "pollOptions": [string]}

Leave out anything the conversation does not settle; absent fields are fine. Timestamps are in %s.

Conversation:
%s`, timezone, strings.Join(lines, "\n"))
}
