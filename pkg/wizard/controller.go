// Package wizard implements the three-screen step controller. Forward
// transitions are gated behind the current step's validator; going back is
// always allowed; steps are never skipped. Every transition notifies the
// registered listeners so views can reset their scroll position.
package wizard

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/validation"
)

var (
	// ErrFinalStep is returned by Next on the last screen; completing the
	// form is the submission pipeline's job.
	ErrFinalStep = errors.New("wizard: already on the final step")
	// ErrNoAttachment is returned when removing an index that does not exist.
	ErrNoAttachment = errors.New("wizard: attachment index out of range")
)

// ValidationError wraps a failed step validation.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return e.Result.Error()
}

// Listener observes step transitions.
type Listener func(from, to incident.Step)

// Snapshot is an immutable copy of everything the controller holds.
type Snapshot struct {
	Step        incident.Step
	State       incident.FormState
	Errors      incident.ErrorSet
	Attachments []incident.Attachment
	MailGroup   *incident.MailGroup
}

// Controller owns the in-progress submission and the current step.
type Controller struct {
	mu          sync.Mutex
	step        incident.Step
	state       incident.FormState
	errors      incident.ErrorSet
	attachments []incident.Attachment
	mailGroup   *incident.MailGroup

	notifier  notify.Notifier
	listeners []Listener
	logger    *zap.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier routes validation and attachment messages to n.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithListener registers a transition listener.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a controller on Step1 with the initial form state.
func New(options ...Option) *Controller {
	c := &Controller{
		step:     incident.Step1,
		state:    incident.NewFormState(),
		errors:   incident.ErrorSet{},
		notifier: notify.NewCenter(),
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// OnStepChange registers an additional transition listener.
func (c *Controller) OnStepChange(l Listener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Step returns the current screen.
func (c *Controller) Step() incident.Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// State returns a copy of the form state.
func (c *Controller) State() incident.FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Errors returns a copy of the current error flags.
func (c *Controller) Errors() incident.ErrorSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors.Clone()
}

// Attachments returns a copy of the queued files.
func (c *Controller) Attachments() []incident.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]incident.Attachment(nil), c.attachments...)
}

// MailGroup returns the selected notification group, if any.
func (c *Controller) MailGroup() (incident.MailGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mailGroup == nil {
		return incident.MailGroup{}, false
	}
	return *c.mailGroup, true
}

// Snapshot copies the full controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Step:        c.step,
		State:       c.state,
		Errors:      c.errors.Clone(),
		Attachments: append([]incident.Attachment(nil), c.attachments...),
	}
	if c.mailGroup != nil {
		g := *c.mailGroup
		s.MailGroup = &g
	}
	return s
}

// Set edits a field and clears its error flag. Details go through the word
// cap; an over-limit edit is rejected and the previous text kept.
func (c *Controller) Set(field incident.Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(field, value)
}

func (c *Controller) setLocked(field incident.Field, value string) error {
	if field == incident.FieldDetails {
		next, err := validation.ApplyWordLimit(c.state.Details, value, validation.MaxDetailsWords)
		if err != nil {
			return fmt.Errorf("wizard: %s: %w", field, err)
		}
		value = next
	}
	if err := c.state.Set(field, value); err != nil {
		return err
	}
	delete(c.errors, field)
	return nil
}

// SetDetails is a shorthand for Set(FieldDetails, text).
func (c *Controller) SetDetails(text string) error {
	return c.Set(incident.FieldDetails, text)
}

// Load applies every field of state, as if each were edited in turn. The
// mail group id is left to SelectMailGroup.
func (c *Controller) Load(state incident.FormState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range incident.Fields {
		if f == incident.FieldMailGroupID {
			continue
		}
		if err := c.setLocked(f, state.Get(f)); err != nil {
			return err
		}
	}
	return nil
}

// AddAttachments queues files, skipping each one that breaks a constraint.
// A notification is raised per rejected file.
func (c *Controller) AddAttachments(files ...incident.Attachment) []validation.FileError {
	c.mu.Lock()
	accepted, rejected := validation.AddAttachments(c.attachments, files)
	c.attachments = accepted
	c.mu.Unlock()

	for _, fe := range rejected {
		c.logger.Debug("attachment rejected",
			zap.String("name", fe.Name),
			zap.String("reason", string(fe.Reason)),
		)
		c.notifier.Notify(notify.Notification{
			ID:      "attachment-" + fe.Name,
			Level:   notify.LevelError,
			Message: fe.Error(),
		})
	}
	return rejected
}

// RemoveAttachment drops the file at index.
func (c *Controller) RemoveAttachment(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.attachments) {
		return ErrNoAttachment
	}
	c.attachments = append(c.attachments[:index], c.attachments[index+1:]...)
	return nil
}

// SelectMailGroup picks the group notified on submission; nil clears it.
func (c *Controller) SelectMailGroup(g *incident.MailGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g == nil {
		c.mailGroup = nil
		c.state.MailGroupID = ""
		return
	}
	selected := *g
	c.mailGroup = &selected
	c.state.MailGroupID = selected.ID
}

// Next validates the current step and advances when it passes. On failure
// the error flags are stored and one notification per step is surfaced.
func (c *Controller) Next() error {
	c.mu.Lock()
	from := c.step
	if from == incident.Step3 {
		c.mu.Unlock()
		return ErrFinalStep
	}
	result := validation.ValidateStep(from, c.state)
	c.errors = result.Errors
	if !result.OK {
		c.mu.Unlock()
		c.logger.Debug("step validation failed",
			zap.Int("step", int(from)),
			zap.Int("missing", len(result.Errors)),
		)
		c.notifier.Notify(notify.Notification{
			ID:      notify.StepValidationID(from),
			Level:   notify.LevelError,
			Message: missingMessage(result.Errors),
		})
		return &ValidationError{Result: result}
	}
	to := from + 1
	c.step = to
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	c.dismiss(notify.StepValidationID(from))
	c.emit(listeners, from, to)
	return nil
}

// Back moves to the previous step without validation. It is a no-op on the
// first step.
func (c *Controller) Back() {
	c.mu.Lock()
	from := c.step
	if from == incident.Step1 {
		c.mu.Unlock()
		return
	}
	to := from - 1
	c.step = to
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	c.emit(listeners, from, to)
}

// Reset restores the initial state and returns to Step1.
func (c *Controller) Reset() {
	c.mu.Lock()
	from := c.step
	c.step = incident.Step1
	c.state = incident.NewFormState()
	c.errors = incident.ErrorSet{}
	c.attachments = nil
	c.mailGroup = nil
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	if from != incident.Step1 {
		c.emit(listeners, from, incident.Step1)
	}
}

func (c *Controller) emit(listeners []Listener, from, to incident.Step) {
	for _, l := range listeners {
		l(from, to)
	}
}

func (c *Controller) dismiss(id string) {
	if d, ok := c.notifier.(interface{ Dismiss(string) }); ok {
		d.Dismiss(id)
	}
}

func missingMessage(errs incident.ErrorSet) string {
	fields := errs.Fields()
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, incident.Label(f))
	}
	return "Please fill in the required fields: " + strings.Join(labels, ", ")
}
