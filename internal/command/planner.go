package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaiwa-bot/kaiwa/internal/calendar"
	"github.com/tidwall/gjson"
)

// Plan is the event-planner handler's parsed model output. Every field has a
// documented neutral default applied when absent.
type Plan struct {
	Title           string   // default "Untitled event"
	Datetime        string   // default "TBD", expected "YYYY-MM-DD HH:MM"
	DurationMinutes int      // default 60
	Location        string   // default "TBD"
	Participants    []string // default empty
	OpenQuestions   []string // default empty
	PollOptions     []string // default empty
}

// planDatetimeLayout is the datetime format the plan prompt requests.
const planDatetimeLayout = "2006-01-02 15:04"

func (r *Router) handleEventPlan(ctx context.Context, conversationID string) ([]string, error) {
	entries := r.store.Recent(conversationID, r.opts.SummaryMaxMessages)
	lines := formatHistory(entries, r.loc, CmdEventPlan)

	out, err := r.backend.Generate(ctx, planPrompt(lines, r.opts.Timezone))
	if err != nil {
		return nil, err
	}
	plan, ok := parsePlan(out)
	if !ok {
		return []string{fallbackPlanParse}, nil
	}
	return r.formatPlan(plan), nil
}

// parsePlan decodes the strict JSON contract tolerantly: absent fields fall
// back to neutral defaults; only a top-level value that is not a JSON object
// fails the parse. Code fences around the object are stripped first.
func parsePlan(out string) (Plan, bool) {
	trimmed := stripCodeFence(out)
	res := gjson.Parse(trimmed)
	if !res.IsObject() {
		return Plan{}, false
	}

	plan := Plan{
		Title:           "Untitled event",
		Datetime:        "TBD",
		DurationMinutes: 60,
		Location:        "TBD",
	}
	if v := res.Get("title"); v.Exists() && strings.TrimSpace(v.String()) != "" {
		plan.Title = strings.TrimSpace(v.String())
	}
	if v := res.Get("datetime"); v.Exists() && strings.TrimSpace(v.String()) != "" {
		plan.Datetime = strings.TrimSpace(v.String())
	}
	if v := res.Get("durationMinutes"); v.Exists() && v.Int() > 0 {
		plan.DurationMinutes = int(v.Int())
	}
	if v := res.Get("location"); v.Exists() && strings.TrimSpace(v.String()) != "" {
		plan.Location = strings.TrimSpace(v.String())
	}
	plan.Participants = stringList(res.Get("participants"))
	plan.OpenQuestions = stringList(res.Get("openQuestions"))
	plan.PollOptions = stringList(res.Get("pollOptions"))
	return plan, true
}

// formatPlan renders the plan card and, when the datetime parses, a second
// message with a calendar template link.
func (r *Router) formatPlan(p Plan) []string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event plan: %s\n", p.Title)
	fmt.Fprintf(&sb, "When: %s (%s)\n", p.Datetime, r.opts.Timezone)
	fmt.Fprintf(&sb, "Duration: %d min\n", p.DurationMinutes)
	fmt.Fprintf(&sb, "Where: %s", p.Location)
	if len(p.Participants) > 0 {
		fmt.Fprintf(&sb, "\nParticipants: %s", strings.Join(p.Participants, ", "))
	}
	appendList(&sb, "Open questions", p.OpenQuestions)
	appendList(&sb, "Poll options", p.PollOptions)

	texts := []string{sb.String()}
	if start, err := time.ParseInLocation(planDatetimeLayout, p.Datetime, r.loc); err == nil {
		link := calendar.TemplateLink(p.Title, start,
			time.Duration(p.DurationMinutes)*time.Minute, p.Location, "Planned in chat")
		texts = append(texts, "Add to calendar: "+link)
	}
	return texts
}

func appendList(sb *strings.Builder, header string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(header)
	sb.WriteString(":")
	for _, item := range items {
		sb.WriteString("\n- ")
		sb.WriteString(item)
	}
}

func stringList(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, item := range v.Array() {
		s := strings.TrimSpace(item.String())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripCodeFence removes a surrounding markdown code fence when the model
// ignores the no-fences instruction.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
