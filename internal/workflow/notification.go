// Package workflow drives the edit and delete dialogs for a single species
// record: live form validation, ownership checks, the gateway call and the
// resulting toasts and refresh signals.
package workflow

import "context"

// Severity tags a toast for styling.
type Severity string

// Toast severities.
const (
	SeverityDefault     Severity = "default"
	SeverityDestructive Severity = "destructive"
)

// User-visible texts.
const (
	TitleFailure      = "Something went wrong."
	MsgEditNotOwner   = "Please only edit your own animals!"
	MsgDeleteNotOwner = "Please only delete your own animals!"
	PromptDelete      = "Are you sure you want to delete this species?"
)

// Notification is a fire-and-forget toast.
type Notification struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

func failure(description string) Notification {
	return Notification{Title: TitleFailure, Description: description, Severity: SeverityDestructive}
}

// Notifier shows toasts to the user.
type Notifier interface {
	Notify(Notification)
}

// Refresher asks the surrounding page to re-fetch its records.
type Refresher interface {
	Refresh()
}

// Confirmer asks the user a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify implements Notifier.
func (f NotifierFunc) Notify(n Notification) { f(n) }

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func()

// Refresh implements Refresher.
func (f RefresherFunc) Refresh() { f() }

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type nopRefresher struct{}

func (nopRefresher) Refresh() {}

// Outcome reports what a submit or delete did.
type Outcome string

// Outcomes returned by EditSession.Submit and Controller.Delete.
const (
	OutcomeSucceeded    Outcome = "succeeded"
	OutcomeInvalid      Outcome = "invalid"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeFailed       Outcome = "failed"
	OutcomeDeclined     Outcome = "declined"
)
