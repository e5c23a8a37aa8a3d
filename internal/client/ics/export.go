// Package ics renders calendar events as an iCalendar (RFC 5545) feed so they
// can be imported into other calendar applications.
package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/studentreminder/reminder/internal/client/models"
)

const productID = "-//studentreminder//reminder//EN"

// Non-standard properties carrying fields iCalendar has no slot for.
const (
	PropertyTimeLabel = ical.ComponentProperty("X-REMINDER-TIME")
	PropertyCreator   = ical.ComponentProperty("X-REMINDER-CREATOR")
)

// CreatorFunc resolves an owner id to a display name.
type CreatorFunc func(userID string) string

// Export writes events as all-day VEVENTs. The event id becomes the UID, so
// re-importing the feed updates instead of duplicating. stamp is used as
// DTSTAMP for every entry.
func Export(w io.Writer, name string, events []models.Event, creator CreatorFunc, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if name != "" {
		cal.SetXWRCalName(name)
		cal.SetName(name)
	}

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetCreatedTime(e.CreatedAt)
		if e.UpdatedAt != nil {
			ve.SetModifiedAt(*e.UpdatedAt)
		}
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}

		start := time.Date(e.Date.Year, e.Date.Month, e.Date.Day, 0, 0, 0, 0, time.UTC)
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))

		if e.Time != "" {
			ve.SetProperty(PropertyTimeLabel, e.Time)
		}
		if e.Color != "" {
			ve.SetColor(e.Color)
		}
		if creator != nil {
			ve.SetProperty(PropertyCreator, creator(e.UserID))
		}
	}

	return cal.SerializeTo(w)
}
