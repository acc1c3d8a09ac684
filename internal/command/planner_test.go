package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanFullObject(t *testing.T) {
	plan, ok := parsePlan(`{
		"title": "Team dinner",
		"datetime": "2025-07-04 19:00",
		"durationMinutes": 90,
		"location": "Shibuya",
		"participants": ["alice", "bob"],
		"openQuestions": ["vegetarian options?"],
		"pollOptions": ["Friday", "Saturday"]
	}`)

	require.True(t, ok)
	assert.Equal(t, "Team dinner", plan.Title)
	assert.Equal(t, "2025-07-04 19:00", plan.Datetime)
	assert.Equal(t, 90, plan.DurationMinutes)
	assert.Equal(t, "Shibuya", plan.Location)
	assert.Equal(t, []string{"alice", "bob"}, plan.Participants)
	assert.Equal(t, []string{"vegetarian options?"}, plan.OpenQuestions)
	assert.Equal(t, []string{"Friday", "Saturday"}, plan.PollOptions)
}

func TestParsePlanDefaultsAbsentFields(t *testing.T) {
	plan, ok := parsePlan(`{}`)

	require.True(t, ok)
	assert.Equal(t, "Untitled event", plan.Title)
	assert.Equal(t, "TBD", plan.Datetime)
	assert.Equal(t, 60, plan.DurationMinutes)
	assert.Equal(t, "TBD", plan.Location)
	assert.Empty(t, plan.Participants)
	assert.Empty(t, plan.OpenQuestions)
	assert.Empty(t, plan.PollOptions)
}

func TestParsePlanDefaultsBlankAndInvalidValues(t *testing.T) {
	plan, ok := parsePlan(`{"title":"  ","durationMinutes":0,"participants":["", " carol "]}`)

	require.True(t, ok)
	assert.Equal(t, "Untitled event", plan.Title)
	assert.Equal(t, 60, plan.DurationMinutes)
	assert.Equal(t, []string{"carol"}, plan.Participants)
}

func TestParsePlanRejectsNonObject(t *testing.T) {
	for _, out := range []string{
		"Sounds like a fun dinner!",
		`["not", "an", "object"]`,
		`"just a string"`,
		"",
	} {
		if _, ok := parsePlan(out); ok {
			t.Errorf("expected parse failure for %q", out)
		}
	}
}

func TestParsePlanStripsCodeFence(t *testing.T) {
	plan, ok := parsePlan("```json\n{\"title\":\"Picnic\"}\n```")

	require.True(t, ok)
	assert.Equal(t, "Picnic", plan.Title)
}

func TestEventPlanHandlerFallsBackOnUnparseableOutput(t *testing.T) {
	b := &fakeBackend{output: "I suggest meeting on Friday!"}
	rep := &fakeReplier{}
	router, _ := newTestRouter(b, rep)

	router.Dispatch(context.Background(), textEvent("tok", "u1", "/event"))

	require.Len(t, rep.texts, 1)
	assert.Equal(t, []string{fallbackPlanParse}, rep.texts[0])
}

func TestEventPlanHandlerFormatsCardAndCalendarLink(t *testing.T) {
	b := &fakeBackend{output: `{"title":"Team dinner","datetime":"2025-07-04 19:00","durationMinutes":90,"location":"Shibuya","pollOptions":["Fri","Sat"]}`}
	rep := &fakeReplier{}
	router, _ := newTestRouter(b, rep)

	router.Dispatch(context.Background(), textEvent("tok", "u1", "/poll"))

	require.Len(t, rep.texts, 1)
	require.Len(t, rep.texts[0], 2)

	card := rep.texts[0][0]
	assert.Contains(t, card, "Event plan: Team dinner")
	assert.Contains(t, card, "When: 2025-07-04 19:00 (UTC)")
	assert.Contains(t, card, "Duration: 90 min")
	assert.Contains(t, card, "Where: Shibuya")
	assert.Contains(t, card, "Poll options:")
	assert.Contains(t, card, "- Fri")

	link := rep.texts[0][1]
	assert.Contains(t, link, "calendar.google.com/calendar/render")
	assert.Contains(t, link, "20250704T190000%2F20250704T203000")
}

func TestEventPlanWithoutParseableDatetimeSkipsLink(t *testing.T) {
	b := &fakeBackend{output: `{"title":"Something"}`}
	rep := &fakeReplier{}
	router, _ := newTestRouter(b, rep)

	router.Dispatch(context.Background(), textEvent("tok", "u1", "/event"))

	require.Len(t, rep.texts, 1)
	require.Len(t, rep.texts[0], 1, "no calendar link for a TBD datetime")
}

func TestEventPlanPromptExcludesOwnInvocation(t *testing.T) {
	b := &fakeBackend{output: `{}`}
	rep := &fakeReplier{}
	router, _ := newTestRouter(b, rep)

	router.Dispatch(context.Background(), textEvent("t1", "u1", "dinner friday?"))
	router.Dispatch(context.Background(), textEvent("t2", "u2", "/event"))

	require.Len(t, b.prompts, 1)
	assert.Contains(t, b.prompts[0], "dinner friday?")
	assert.NotContains(t, b.prompts[0], "/event")
}
