// Package calendar builds Google Calendar template links for planned events.
// Pure string formatting; no invariants beyond URL encoding.
package calendar

import (
	"net/url"
	"time"
)

const renderBase = "https://calendar.google.com/calendar/render"

// datesLayout is the floating local time format the template endpoint expects.
const datesLayout = "20060102T150405"

// TemplateLink returns a prefilled event-creation URL. Times are rendered as
// floating local times so the invitee's calendar applies its own zone.
func TemplateLink(title string, start time.Time, duration time.Duration, location, details string) string {
	if duration <= 0 {
		duration = time.Hour
	}
	end := start.Add(duration)

	values := url.Values{}
	values.Set("action", "TEMPLATE")
	values.Set("text", title)
	values.Set("dates", start.Format(datesLayout)+"/"+end.Format(datesLayout))
	if location != "" {
		values.Set("location", location)
	}
	if details != "" {
		values.Set("details", details)
	}
	return renderBase + "?" + values.Encode()
}
