package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/studentreminder/reminder/internal/client/models"
	"github.com/studentreminder/reminder/internal/common"
)

var errUsage = errors.New("usage")

func (a *App) usage(text string) error {
	fmt.Fprintln(a.out, "Usage:", text)
	return errUsage
}

// parseDay accepts YYYY-MM-DD, "today" and "tomorrow".
func (a *App) parseDay(s string) (models.Date, error) {
	switch s {
	case "today":
		return models.DateOf(a.now()), nil
	case "tomorrow":
		return models.DateOf(a.now().AddDate(0, 0, 1)), nil
	}
	return models.ParseDate(s)
}

// AddEvent prompts for the event fields and creates the event.
func (a *App) AddEvent(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return a.fail(err)
	}
	dayText, err := getSimpleText(a.reader, "Date (YYYY-MM-DD, today, tomorrow)", a.out)
	if err != nil {
		return a.fail(err)
	}
	day, err := a.parseDay(dayText)
	if err != nil {
		return a.fail(err)
	}
	timeLabel, err := getSimpleText(a.reader, "Time (optional)", a.out)
	if err != nil {
		return a.fail(err)
	}
	color, err := getSimpleText(a.reader, "Color (optional)", a.out)
	if err != nil {
		return a.fail(err)
	}
	description, err := GetMultiline(a.reader, "Description (optional)", a.out)
	if err != nil {
		return a.fail(err)
	}

	e, err := a.events.CreateEvent(ctx, models.EventInput{
		Title:       title,
		Description: description,
		Date:        day,
		Time:        timeLabel,
		Color:       color,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created %s\n", e.ID)
	return nil
}

// EditEvent prompts for every field of the event; an empty answer keeps
// the current value.
func (a *App) EditEvent(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("edit <id>")
	}
	if !a.isLoggedIn() {
		return a.fail(common.ErrNotAuthenticated)
	}

	var current *models.Event
	for _, e := range a.events.Events() {
		if e.ID == args[0] {
			current = &e
			break
		}
	}
	if current == nil {
		return a.fail(fmt.Errorf("event %s: %w", args[0], common.ErrorNotFound))
	}

	var patch models.EventPatch
	ask := func(label, value string) (*string, error) {
		text, err := getSimpleText(a.reader, fmt.Sprintf("%s [%s]", label, value), a.out)
		if err != nil || text == "" {
			return nil, err
		}
		return &text, nil
	}

	var err error
	if patch.Title, err = ask("Title", current.Title); err != nil {
		return a.fail(err)
	}
	dayText, err := ask("Date", current.Date.String())
	if err != nil {
		return a.fail(err)
	}
	if dayText != nil {
		day, err := a.parseDay(*dayText)
		if err != nil {
			return a.fail(err)
		}
		patch.Date = &day
	}
	if patch.Time, err = ask("Time", current.Time); err != nil {
		return a.fail(err)
	}
	if patch.Color, err = ask("Color", current.Color); err != nil {
		return a.fail(err)
	}
	if patch.Description, err = ask("Description", current.Description); err != nil {
		return a.fail(err)
	}

	if patch.IsEmpty() {
		fmt.Fprintln(a.out, "Nothing to change")
		return nil
	}
	if err := a.events.UpdateEvent(ctx, current.ID, patch); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Updated")
	return nil
}

// DeleteEvent removes an event by id. Unknown ids are not an error.
func (a *App) DeleteEvent(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return a.usage("delete <id>")
	}
	if !a.isLoggedIn() {
		return a.fail(common.ErrNotAuthenticated)
	}
	if err := a.events.DeleteEvent(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

// List prints the visible events sorted for display, optionally only those
// of one day.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return a.usage("list [YYYY-MM-DD|today|tomorrow]")
	}
	if err := a.events.GetEvents(ctx); err != nil {
		return err
	}

	var events []models.Event
	if len(args) == 1 {
		day, err := a.parseDay(args[0])
		if err != nil {
			return a.fail(err)
		}
		events = a.events.EventsOn(day)
	} else {
		events = a.events.Events()
		models.SortForDisplay(events)
	}

	if len(events) == 0 {
		fmt.Fprintln(a.out, "No events")
		return nil
	}

	names := map[string]string{}
	for _, e := range events {
		name, ok := names[e.UserID]
		if !ok {
			name = a.events.GetEventCreatorInfo(ctx, e.UserID).Username
			names[e.UserID] = name
		}
		fmt.Fprintf(a.out, "%s  %-8s %s  (by %s)  [%s]\n", e.Date, e.Time, e.Title, name, e.ID)
	}
	return nil
}
