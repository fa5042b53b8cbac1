package calendar

import (
	"net/url"

	"steam-release-calendar/internal/release"
)

const googleCalendarBase = "https://calendar.google.com/calendar/render"

// GoogleCalendarURL returns an "add event" link for info. There is none when
// the store date could not be parsed.
func GoogleCalendarURL(info release.Info) (string, bool) {
	if !info.Date.Known() {
		return "", false
	}
	event, err := EventFor(info)
	if err != nil {
		return "", false
	}

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", event.Title)
	q.Set("dates", event.Day.Format("20060102")+"/"+event.Day.AddDate(0, 0, 1).Format("20060102"))
	q.Set("details", event.Description)
	q.Set("sf", "true")
	q.Set("output", "xml")
	return googleCalendarBase + "?" + q.Encode(), true
}
