// Package tui drives the three-step incident form in a terminal. Prompts go
// through a PromptDriver so the flow can be scripted in tests.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/answers"
	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/payload"
	"github.com/goliatone/go-incident-report/pkg/session"
	"github.com/goliatone/go-incident-report/pkg/submission"
	"github.com/goliatone/go-incident-report/pkg/validation"
	"github.com/goliatone/go-incident-report/pkg/wizard"
)

const noneOption = "(none)"

// Navigation choices shown at the end of each step.
const (
	navContinue = "Continue"
	navBack     = "Back"
	navCancel   = "Cancel"
)

// Runner walks a session through the form.
type Runner struct {
	driver  PromptDriver
	session *session.Session
	logger  *zap.Logger
	today   func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithToday sets the clock used for the default incident date.
func WithToday(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.today = now
		}
	}
}

// NewRunner binds a runner to s. The survey driver is used by default.
func NewRunner(s *session.Session, options ...Option) (*Runner, error) {
	if s == nil {
		return nil, errors.New("tui: session is required")
	}
	r := &Runner{
		session: s,
		logger:  zap.NewNop(),
		today:   time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver()
	}
	// registered once per runner; Run may be called again after a reset
	s.Controller().OnStepChange(func(_, to incident.Step) {
		_ = r.driver.Info(context.Background(), stepBanner(to))
	})
	return r, nil
}

func stepBanner(step incident.Step) string {
	return fmt.Sprintf("\n== Step %d of %d ==", int(step), len(incident.Steps))
}

// Run prompts for every step, shows the review summary and submits on
// confirmation.
func (r *Runner) Run(ctx context.Context) (submission.Outcome, error) {
	ctrl := r.session.Controller()
	if err := r.driver.Info(ctx, fmt.Sprintf("== Step 1 of %d ==", len(incident.Steps))); err != nil {
		return submission.Outcome{}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return submission.Outcome{}, err
		}

		step := ctrl.Step()
		var err error
		switch step {
		case incident.Step1:
			err = r.step1(ctx, ctrl)
		case incident.Step2:
			err = r.step2(ctx, ctrl)
		case incident.Step3:
			err = r.step3(ctx, ctrl)
		}
		if err != nil {
			return submission.Outcome{}, err
		}

		nav, err := r.navigate(ctx, step)
		if err != nil {
			return submission.Outcome{}, err
		}
		switch nav {
		case navCancel:
			return submission.Outcome{}, ErrCancelled
		case navBack:
			ctrl.Back()
			continue
		}

		if step != incident.Step3 {
			if err := ctrl.Next(); err != nil {
				var verr *wizard.ValidationError
				if !errors.As(err, &verr) {
					return submission.Outcome{}, err
				}
				r.flush(ctx)
			}
			continue
		}

		if res := validation.ValidateStep(incident.Step3, ctrl.State()); !res.OK {
			r.notifyMissing(ctx, res)
			continue
		}
		done, outcome, err := r.review(ctx, ctrl)
		if err != nil || done {
			return outcome, err
		}
	}
}

func (r *Runner) navigate(ctx context.Context, step incident.Step) (string, error) {
	options := []string{navContinue, navBack}
	if step == incident.Step1 {
		options = []string{navContinue, navCancel}
	}
	if step == incident.Step3 {
		options[0] = "Review and submit"
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Next", Options: options})
	if err != nil {
		return "", err
	}
	if idx == 0 {
		return navContinue, nil
	}
	if idx < 0 || idx >= len(options) {
		return "", fmt.Errorf("tui: invalid choice %d", idx)
	}
	return options[idx], nil
}

func (r *Runner) step1(ctx context.Context, ctrl *wizard.Controller) error {
	state := ctrl.State()
	steps := []func() error{
		func() error {
			return r.selectField(ctx, ctrl, incident.FieldTypeOfAct, incident.ObservanceTypes.Labels(), state.TypeOfAct, false)
		},
		func() error {
			return r.selectField(ctx, ctrl, incident.FieldPrefix, incident.Prefixes, state.Prefix, true)
		},
		func() error { return r.inputField(ctx, ctrl, incident.FieldFirstName, state.FirstName, nil) },
		func() error { return r.inputField(ctx, ctrl, incident.FieldMiddleName, state.MiddleName, nil) },
		func() error { return r.inputField(ctx, ctrl, incident.FieldLastName, state.LastName, nil) },
		func() error {
			return r.selectField(ctx, ctrl, incident.FieldEmploymentType, incident.EmploymentTypes.Labels(), state.EmploymentType, false)
		},
		func() error { return r.inputField(ctx, ctrl, incident.FieldEmail, state.Email, nil) },
		func() error { return r.inputField(ctx, ctrl, incident.FieldPhone, state.Phone, nil) },
	}
	return runAll(steps)
}

func (r *Runner) step2(ctx context.Context, ctrl *wizard.Controller) error {
	state := ctrl.State()
	date := state.Date
	if date == "" {
		date = r.today().Format("2006-01-02")
	}
	steps := []func() error{
		func() error { return r.inputField(ctx, ctrl, incident.FieldDate, date, validDate) },
		func() error { return r.inputField(ctx, ctrl, incident.FieldTime, state.Time, validClock) },
		func() error {
			return r.selectField(ctx, ctrl, incident.FieldAMPM, incident.Meridiems, state.AMPM, false)
		},
		func() error { return r.inputField(ctx, ctrl, incident.FieldLocation, state.Location, nil) },
		func() error { return r.inputField(ctx, ctrl, incident.FieldUnitName, state.UnitName, nil) },
		func() error {
			return r.selectField(ctx, ctrl, incident.FieldAreaName, incident.Areas.Labels(), state.AreaName, false)
		},
	}
	return runAll(steps)
}

func (r *Runner) step3(ctx context.Context, ctrl *wizard.Controller) error {
	state := ctrl.State()
	if err := r.selectField(ctx, ctrl, incident.FieldReportedToOfficials, incident.ReportedStatuses.Labels(), state.ReportedToOfficials, false); err != nil {
		return err
	}
	if err := r.details(ctx, ctrl, state.Details); err != nil {
		return err
	}
	if err := r.attachments(ctx, ctrl); err != nil {
		return err
	}
	return r.mailGroup(ctx)
}

func (r *Runner) details(ctx context.Context, ctrl *wizard.Controller, current string) error {
	help := fmt.Sprintf("Up to %d words.", validation.MaxDetailsWords)
	for {
		text, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: incident.Label(incident.FieldDetails),
			Default: current,
			Help:    help,
		})
		if err != nil {
			return err
		}
		err = ctrl.SetDetails(text)
		if errors.Is(err, validation.ErrWordLimit) {
			if err := r.driver.Info(ctx, fmt.Sprintf("Details are limited to %d words; your text has %d.", validation.MaxDetailsWords, validation.CountWords(text))); err != nil {
				return err
			}
			continue
		}
		return err
	}
}

func (r *Runner) attachments(ctx context.Context, ctrl *wizard.Controller) error {
	if queued := ctrl.Attachments(); len(queued) > 0 {
		names := make([]string, 0, len(queued))
		for _, a := range queued {
			names = append(names, a.Name)
		}
		if err := r.driver.Info(ctx, "Attached: "+strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	raw, err := r.driver.Input(ctx, InputConfig{
		Message: "Attachments",
		Help:    fmt.Sprintf("Comma separated file paths; PDF, Word or images, up to %d files of %d MB. Leave blank to skip.", validation.MaxAttachments, validation.MaxAttachmentSize>>20),
	})
	if err != nil {
		return err
	}

	var files []incident.Attachment
	for _, path := range strings.Split(raw, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		a, err := incident.LoadAttachment(path, validation.MaxAttachmentSize)
		if err != nil {
			r.logger.Debug("attachment unreadable", zap.String("path", path), zap.Error(err))
			if err := r.driver.Info(ctx, fmt.Sprintf("Skipped %s: %v", path, err)); err != nil {
				return err
			}
			continue
		}
		files = append(files, a)
	}
	if len(files) > 0 {
		ctrl.AddAttachments(files...)
		r.flush(ctx)
	}
	return nil
}

func (r *Runner) mailGroup(ctx context.Context) error {
	groups := r.session.MailGroups(ctx)
	if len(groups) == 0 {
		return nil
	}
	options := []string{noneOption}
	for _, g := range groups {
		options = append(options, g.Name)
	}
	current := 0
	if g, ok := r.session.Controller().MailGroup(); ok {
		if i := indexOf(options, g.Name); i > 0 {
			current = i
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      incident.Label(incident.FieldMailGroupID),
		Options:      options,
		DefaultIndex: current,
	})
	if err != nil {
		return err
	}
	if idx <= 0 || idx >= len(options) {
		return r.session.SelectMailGroup(ctx, "")
	}
	return r.session.SelectMailGroup(ctx, groups[idx-1].ID)
}

func (r *Runner) review(ctx context.Context, ctrl *wizard.Controller) (bool, submission.Outcome, error) {
	snap := ctrl.Snapshot()
	summary, err := answers.RenderText("", answers.Collect(validation.SanitizeState(snap.State), snap.Attachments, snap.MailGroup))
	if err != nil {
		return false, submission.Outcome{}, err
	}
	if err := r.driver.Info(ctx, summary); err != nil {
		return false, submission.Outcome{}, err
	}
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Submit this report?", Default: true})
	if err != nil || !ok {
		return false, submission.Outcome{}, err
	}

	outcome, err := r.session.Submit(ctx)
	r.flush(ctx)
	if err != nil {
		return true, outcome, err
	}
	if outcome.Aborted {
		return false, outcome, nil
	}
	return true, outcome, nil
}

func (r *Runner) inputField(ctx context.Context, ctrl *wizard.Controller, field incident.Field, current string, validator func(string) error) error {
	cfg := InputConfig{Message: incident.Label(field), Default: current, Validator: validator}
	if isRequired(field) {
		cfg.Message += " *"
	}
	value, err := r.driver.Input(ctx, cfg)
	if err != nil {
		return err
	}
	return ctrl.Set(field, strings.TrimSpace(value))
}

func (r *Runner) selectField(ctx context.Context, ctrl *wizard.Controller, field incident.Field, options []string, current string, optional bool) error {
	if optional {
		options = append([]string{noneOption}, options...)
	}
	def := 0
	for i, o := range options {
		if strings.EqualFold(o, current) {
			def = i
		}
	}
	msg := incident.Label(field)
	if isRequired(field) {
		msg += " *"
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: msg, Options: options, DefaultIndex: def})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(options) {
		return fmt.Errorf("tui: invalid choice %d for %s", idx, field)
	}
	value := options[idx]
	if value == noneOption {
		value = ""
	}
	return ctrl.Set(field, value)
}

// flush prints and clears pending notifications.
func (r *Runner) flush(ctx context.Context) {
	center := r.session.Notifications()
	for _, n := range center.Active() {
		_ = r.driver.Info(ctx, formatNotification(n))
	}
	center.Clear()
}

func (r *Runner) notifyMissing(ctx context.Context, res validation.Result) {
	labels := make([]string, 0, len(res.Errors))
	for _, f := range res.Errors.Fields() {
		labels = append(labels, incident.Label(f))
	}
	r.session.Notifications().Notify(notify.Notification{
		ID:      notify.StepValidationID(res.Step),
		Level:   notify.LevelError,
		Message: "Please fill in the required fields: " + strings.Join(labels, ", "),
	})
	r.flush(ctx)
}

func formatNotification(n notify.Notification) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Level)), n.Message)
}

func isRequired(field incident.Field) bool {
	for _, step := range incident.Steps {
		for _, f := range validation.RequiredFields(step) {
			if f == field {
				return true
			}
		}
	}
	return false
}

func runAll(steps []func() error) error {
	for _, fn := range steps {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func validDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err != nil {
		return errors.New("use the YYYY-MM-DD format")
	}
	return nil
}

func validClock(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, _, _, err := payload.ParseClock(s); err != nil {
		return errors.New("use a 12-hour H:MM time from 1:00 to 12:59, e.g. 11:30")
	}
	return nil
}
