package calendar

import (
	"bytes"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"steam-release-calendar/internal/release"
)

const productID = "-//Steam Games Calendar//EN"

// Calendar is an iCalendar document of game releases.
type Calendar struct {
	cal    *ical.Calendar
	now    func() time.Time
	events int
}

func New() *Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")

	return &Calendar{
		cal: cal,
		now: time.Now,
	}
}

// Event is the calendar view of a release: an all-day entry on Day.
type Event struct {
	UID         string
	Title       string
	Description string
	URL         string
	Day         time.Time
}

// EventFor builds the event for info. It fails with release.ErrNoDate or
// release.ErrUnparseableDate when there is no day to put it on.
func EventFor(info release.Info) (Event, error) {
	day, err := release.EventDate(info.Date)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", info.Name, err)
	}
	name := info.Name
	if name == "" {
		name = "Unknown Game"
	}
	storeURL := info.StoreURL()
	return Event{
		// Same app, same UID across runs.
		UID:         uuid.NewSHA1(uuid.NameSpaceURL, []byte(storeURL)).String(),
		Title:       "Game Release: " + name,
		Description: info.ShortDescription + "\n\nSteam Store Link: " + storeURL,
		URL:         storeURL,
		Day:         day,
	}, nil
}

// AddRelease adds an all-day event with a reminder the day before.
func (c *Calendar) AddRelease(info release.Info) error {
	event, err := EventFor(info)
	if err != nil {
		return err
	}
	c.AddEvent(event)
	return nil
}

func (c *Calendar) AddEvent(event Event) {
	e := c.cal.AddEvent(event.UID)
	e.SetDtStampTime(c.now())
	e.SetAllDayStartAt(event.Day)
	e.SetAllDayEndAt(event.Day.AddDate(0, 0, 1))
	e.SetSummary(event.Title)
	e.SetDescription(event.Description)
	e.SetURL(event.URL)

	alarm := e.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetProperty(ical.ComponentPropertyDescription, "Reminder")
	alarm.SetTrigger("-P1D")

	c.events++
}

// Len returns the number of events added so far.
func (c *Calendar) Len() int {
	return c.events
}

// Serialize renders the calendar as iCalendar text.
func (c *Calendar) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.cal.SerializeTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize calendar: %w", err)
	}
	return buf.Bytes(), nil
}
