package models

import (
	"sort"
	"time"
)

// Event is a calendar entry. Every event is visible to every session;
// UserID only attributes it to its creator.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Date        Date       `json:"date"`
	Time        string     `json:"time,omitempty"` // free-text label, e.g. "3pm"
	UserID      string     `json:"userId"`
	Color       string     `json:"color,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

func (e Event) Clone() Event {
	if e.UpdatedAt != nil {
		t := *e.UpdatedAt
		e.UpdatedAt = &t
	}
	return e
}

// EventInput carries the caller-supplied fields of a new event.
type EventInput struct {
	Title       string
	Description string
	Date        Date
	Time        string
	Color       string
}

// EventPatch is a partial update. Nil fields are left untouched.
type EventPatch struct {
	Title       *string
	Description *string
	Date        *Date
	Time        *string
	Color       *string
}

func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Date == nil && p.Time == nil && p.Color == nil
}

// Apply merges p into e and returns the result. Identity fields
// (ID, UserID, CreatedAt) are not patchable.
func (p EventPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	return e
}

// SortForDisplay orders events by date, then time label, then creation.
// Stores keep insertion order; only views sort.
func SortForDisplay(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// CreatorSource tells which lookup produced a CreatorInfo.
type CreatorSource int

const (
	SourceUnknown   CreatorSource = iota
	SourceDirectory               // live identity directory
	SourceSnapshot                // current session of the persisted identity snapshot
	SourceScan                    // any snapshot found in the device key space
)

func (s CreatorSource) String() string {
	switch s {
	case SourceDirectory:
		return "directory"
	case SourceSnapshot:
		return "snapshot"
	case SourceScan:
		return "scan"
	default:
		return "unknown"
	}
}

// CreatorInfo is the display information of an event's creator.
type CreatorInfo struct {
	Username string
	Source   CreatorSource
}
