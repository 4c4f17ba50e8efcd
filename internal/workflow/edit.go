package workflow

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"speciesdesk/pkg/domain"
)

// State is the edit dialog state.
type State string

// Edit dialog states.
const (
	StateClosed     State = "closed"
	StateOpen       State = "open"
	StateSubmitting State = "submitting"
)

var (
	// ErrNotOpen is returned when a form operation runs on a closed dialog.
	ErrNotOpen = errors.New("edit dialog is not open")
	// ErrSubmitting is returned while an update is in flight.
	ErrSubmitting = errors.New("edit already submitting")
)

// EditSession is the edit dialog for one record and one acting user.
type EditSession struct {
	c          *Controller
	actingUser string

	mu     sync.Mutex
	record domain.Species
	state  State
	form   *Form
}

// Edit starts a closed edit session for record on behalf of actingUser.
func (c *Controller) Edit(record domain.Species, actingUser string) *EditSession {
	return &EditSession{
		c:          c,
		actingUser: actingUser,
		record:     record.Clone(),
		state:      StateClosed,
		form:       NewForm(record),
	}
}

// Open shows the dialog. Opening an open dialog is a no-op.
func (s *EditSession) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitting
	}
	s.state = StateOpen
	return nil
}

// Cancel closes the dialog without a mutation. The form keeps its values.
func (s *EditSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitting
	}
	s.state = StateClosed
	return nil
}

// Set updates one field and returns it with its live validation message.
func (s *EditSession) Set(name, value string) (Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateClosed:
		return Field{}, ErrNotOpen
	case StateSubmitting:
		return Field{}, ErrSubmitting
	}
	return s.form.Set(name, value)
}

// Submit validates the form, checks ownership and, when both pass, sends one
// update through the gateway. Every call that reaches the gateway sends the
// full payload whether or not anything changed.
func (s *EditSession) Submit(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return "", ErrNotOpen
	case StateSubmitting:
		s.mu.Unlock()
		return "", ErrSubmitting
	}
	payload, errs := s.form.Validate()
	if errs != nil {
		s.mu.Unlock()
		return OutcomeInvalid, nil
	}
	if !s.record.OwnedBy(s.actingUser) {
		s.mu.Unlock()
		s.c.logger.Info("edit rejected", zap.String("species_id", s.record.ID), zap.String("acting_user", s.actingUser))
		s.c.notifier.Notify(failure(MsgEditNotOwner))
		return OutcomeUnauthorized, nil
	}
	s.state = StateSubmitting
	id := s.record.ID
	s.mu.Unlock()

	err := s.c.gateway.Update(ctx, id, payload)

	s.mu.Lock()
	if err != nil {
		s.state = StateOpen
		s.mu.Unlock()
		s.c.logger.Warn("species update failed", zap.String("species_id", id), zap.Error(err))
		s.c.notifier.Notify(failure(domain.ErrorMessage(err)))
		return OutcomeFailed, nil
	}
	s.record.Apply(payload)
	s.form.Reset(payload)
	s.state = StateClosed
	s.mu.Unlock()
	s.c.refresher.Refresh()
	return OutcomeSucceeded, nil
}

// State returns the current dialog state.
func (s *EditSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Fields returns a copy of the form fields.
func (s *EditSession) Fields() map[string]Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Fields()
}

// Record returns the record as last submitted successfully.
func (s *EditSession) Record() domain.Species {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

// ActingUser returns the user the session acts for.
func (s *EditSession) ActingUser() string { return s.actingUser }
