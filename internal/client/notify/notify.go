// Package notify is the outbound notification side channel (confirmation
// mails, reset mails, reminders). Delivery is best effort: a failed
// notification never fails the operation that triggered it.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/studentreminder/reminder/internal/logging"
)

type Kind string

const (
	KindLoginConfirmation Kind = "login_confirmation"
	KindPasswordReset     Kind = "password_reset"
	KindReminder          Kind = "reminder"
)

type Notification struct {
	Kind      Kind
	Recipient string // email address
	Subject   string
	Body      string
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification) error

func (f Func) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogNotifier "delivers" notifications by logging them.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.log.Info(ctx, n.Subject, "kind", string(n.Kind), "to", n.Recipient, "body", n.Body)
	return nil
}

// Async sends notifications on their own goroutine. Errors and panics from
// the wrapped notifier are logged and swallowed.
type Async struct {
	next Notifier
	log  logging.Logger
	wg   sync.WaitGroup
}

func NewAsync(next Notifier, log logging.Logger) *Async {
	return &Async{next: next, log: log}
}

// Send dispatches n and returns immediately. The caller's cancellation does
// not abort delivery.
func (a *Async) Send(ctx context.Context, n Notification) {
	ctx = context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.deliver(ctx, n); err != nil {
			a.log.Warn(ctx, "notification not delivered", "kind", string(n.Kind), "to", n.Recipient, "error", err)
		}
	}()
}

func (a *Async) deliver(ctx context.Context, n Notification) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notifier panic: %v", p)
		}
	}()
	return a.next.Notify(ctx, n)
}

// Wait blocks until every notification sent so far has been handled.
func (a *Async) Wait() {
	a.wg.Wait()
}
