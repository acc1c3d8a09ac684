package calendar

import (
	"net/url"
	"testing"
	"time"
)

func TestTemplateLink(t *testing.T) {
	start := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	link := TemplateLink("Team dinner", start, 90*time.Minute, "Shibuya", "Planned in chat")

	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("action") != "TEMPLATE" {
		t.Errorf("action: got %q", q.Get("action"))
	}
	if q.Get("text") != "Team dinner" {
		t.Errorf("text: got %q", q.Get("text"))
	}
	if q.Get("dates") != "20250704T190000/20250704T203000" {
		t.Errorf("dates: got %q", q.Get("dates"))
	}
	if q.Get("location") != "Shibuya" {
		t.Errorf("location: got %q", q.Get("location"))
	}
	if q.Get("details") != "Planned in chat" {
		t.Errorf("details: got %q", q.Get("details"))
	}
}

func TestTemplateLinkDefaultsDuration(t *testing.T) {
	start := time.Date(2025, 7, 4, 19, 0, 0, 0, time.UTC)
	link := TemplateLink("Quick sync", start, 0, "", "")

	u, _ := url.Parse(link)
	if got := u.Query().Get("dates"); got != "20250704T190000/20250704T200000" {
		t.Errorf("expected one-hour default, got %q", got)
	}
	if u.Query().Has("location") {
		t.Error("empty location should be omitted")
	}
}
