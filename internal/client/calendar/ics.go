package calendar

import (
	"time"

	ics "github.com/arran4/golang-ical"
)

const productID = "-//Insubria Survive//Campus Calendar//IT"

// RenderICS writes events as an RFC 5545 VCALENDAR. stamp becomes the
// DTSTAMP of every event. Times are written in UTC, so no VTIMEZONE is
// needed whatever zone the events were built in.
func RenderICS(stamp time.Time, events ...Event) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodPublish)

	for _, e := range events {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(e.Start)
		ev.SetEndAt(e.End)
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if e.Location != "" {
			ev.SetLocation(e.Location)
		}
	}

	return []byte(cal.Serialize())
}
