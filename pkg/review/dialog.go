// Package review implements the review-action dialog used by reviewers to
// record what was done about a complaint.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/validation"
)

// NotificationID identifies the dialog's messages.
const NotificationID = "review-action"

var (
	ErrEmptyAction   = errors.New("review: action text is required")
	ErrNoStatus      = errors.New("review: status is required")
	ErrUnknownStatus = errors.New("review: unknown status")
)

// Submitter records review actions.
type Submitter interface {
	CreateReviewAction(ctx context.Context, complaintID string, action client.ReviewAction) (*client.Response, error)
}

// Dialog holds the action text and status for one complaint.
type Dialog struct {
	mu          sync.Mutex
	complaintID string
	text        string
	status      string
	statuses    []string

	submitter Submitter
	notifier  notify.Notifier
	logger    *zap.Logger
}

// Option configures a Dialog.
type Option func(*Dialog)

// WithNotifier routes user-visible messages.
func WithNotifier(n notify.Notifier) Option {
	return func(d *Dialog) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dialog) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithStatuses overrides the selectable statuses.
func WithStatuses(statuses ...string) Option {
	return func(d *Dialog) {
		if len(statuses) > 0 {
			d.statuses = append([]string(nil), statuses...)
		}
	}
}

// NewDialog opens a dialog for complaintID. Selectable statuses default to
// the enum the API contract declares.
func NewDialog(complaintID string, submitter Submitter, options ...Option) (*Dialog, error) {
	complaintID = strings.TrimSpace(complaintID)
	if complaintID == "" {
		return nil, errors.New("review: complaint id is required")
	}
	if submitter == nil {
		return nil, errors.New("review: submitter is required")
	}
	d := &Dialog{
		complaintID: complaintID,
		submitter:   submitter,
		notifier:    notify.NewCenter(),
		logger:      zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	if len(d.statuses) == 0 {
		statuses, err := contractStatuses()
		if err != nil {
			return nil, err
		}
		d.statuses = statuses
	}
	return d, nil
}

func contractStatuses() ([]string, error) {
	c, err := contract.Default()
	if err != nil {
		return nil, err
	}
	op, err := c.Operation(contract.OpCreateReviewAction)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), op.Enums["status"]...), nil
}

// ComplaintID returns the complaint under review.
func (d *Dialog) ComplaintID() string {
	return d.complaintID
}

// Statuses lists the selectable statuses.
func (d *Dialog) Statuses() []string {
	return append([]string(nil), d.statuses...)
}

// SetText replaces the action text. Edits that would exceed the word cap
// are rejected and the previous text kept.
func (d *Dialog) SetText(next string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, err := validation.ApplyWordLimit(d.text, next, validation.MaxActionWords)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}
	d.text = text
	return nil
}

// Text returns the current action text.
func (d *Dialog) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Remaining returns how many words can still be added.
func (d *Dialog) Remaining() int {
	return validation.MaxActionWords - validation.CountWords(d.Text())
}

// SetStatus selects the status recorded with the action.
func (d *Dialog) SetStatus(status string) error {
	status = strings.TrimSpace(status)
	for _, s := range d.statuses {
		if strings.EqualFold(s, status) {
			d.mu.Lock()
			d.status = s
			d.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
}

// Submit sends the action and clears the dialog on success.
func (d *Dialog) Submit(ctx context.Context) error {
	d.mu.Lock()
	action := client.ReviewAction{
		Action: validation.SanitizeText(d.text),
		Status: d.status,
	}
	d.mu.Unlock()

	if action.Action == "" {
		return ErrEmptyAction
	}
	if action.Status == "" {
		return ErrNoStatus
	}

	if _, err := d.submitter.CreateReviewAction(ctx, d.complaintID, action); err != nil {
		d.logger.Warn("review action failed", zap.String("complaint_id", d.complaintID), zap.Error(err))
		msg := "Could not save the review action"
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Body != "" {
			msg += ": " + apiErr.Body
		}
		d.notifier.Notify(notify.Notification{ID: NotificationID, Level: notify.LevelError, Message: msg})
		return err
	}

	d.logger.Info("review action saved", zap.String("complaint_id", d.complaintID), zap.String("status", action.Status))
	d.notifier.Notify(notify.Notification{ID: NotificationID, Level: notify.LevelSuccess, Message: "Review action saved"})
	d.mu.Lock()
	d.text = ""
	d.status = ""
	d.mu.Unlock()
	return nil
}
