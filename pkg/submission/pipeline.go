// Package submission runs the end-of-form pipeline: re-validate, build the
// payload, post it once, always produce the PDF report, then reset the form.
// Delivery is best effort; a failed post never prevents the report.
package submission

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/answers"
	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/payload"
	"github.com/goliatone/go-incident-report/pkg/pdf"
	"github.com/goliatone/go-incident-report/pkg/storage"
	"github.com/goliatone/go-incident-report/pkg/validation"
	"github.com/goliatone/go-incident-report/pkg/wizard"
)

// Notification identifiers raised by the pipeline.
const (
	NotificationResult = "submission-result"
	NotificationReport = "submission-report"
)

var (
	// ErrSubmitInProgress rejects a Submit while another one is running.
	ErrSubmitInProgress = errors.New("submission: already in progress")
	// ErrReport is returned when the PDF could not be rendered or saved. The
	// form is left intact so the user can retry.
	ErrReport = errors.New("submission: report failed")
)

// Poster delivers a complaint.
type Poster interface {
	CreateComplaint(ctx context.Context, p *payload.Payload) (*client.Response, error)
}

// Renderer produces the PDF report.
type Renderer interface {
	Render(ctx context.Context, rows []answers.Answer) (*pdf.Document, error)
}

// Outcome describes what a Submit call did.
type Outcome struct {
	// Aborted is set when re-validation failed; nothing else ran.
	Aborted      bool
	Submitted    bool
	Response     *client.Response
	ServerError  *client.APIError
	NetworkError error
	BuildError   error
	PDFLocation  string
	PDFPages     int
	Answers      []answers.Answer
}

// Pipeline submits the controller's current form.
type Pipeline struct {
	controller *wizard.Controller
	poster     Poster
	renderer   Renderer
	sink       storage.Sink
	notifier   notify.Notifier
	logger     *zap.Logger

	submitting atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPoster sets the complaint collaborator. Without one the post step is
// skipped and only the report is produced.
func WithPoster(p Poster) Option {
	return func(pl *Pipeline) {
		pl.poster = p
	}
}

// WithRenderer overrides the PDF renderer.
func WithRenderer(r Renderer) Option {
	return func(pl *Pipeline) {
		if r != nil {
			pl.renderer = r
		}
	}
}

// WithSink sets where the report is saved.
func WithSink(s storage.Sink) Option {
	return func(pl *Pipeline) {
		if s != nil {
			pl.sink = s
		}
	}
}

// WithNotifier routes user-visible messages.
func WithNotifier(n notify.Notifier) Option {
	return func(pl *Pipeline) {
		if n != nil {
			pl.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(pl *Pipeline) {
		if logger != nil {
			pl.logger = logger
		}
	}
}

// New returns a pipeline bound to controller. Reports default to the
// current directory.
func New(controller *wizard.Controller, options ...Option) *Pipeline {
	pl := &Pipeline{
		controller: controller,
		renderer:   pdf.New(),
		sink:       storage.NewFileSink("."),
		notifier:   notify.NewCenter(),
		logger:     zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(pl)
	}
	return pl
}

// Submitting reports whether a Submit call is running.
func (pl *Pipeline) Submitting() bool {
	return pl.submitting.Load()
}

// Submit runs the pipeline once. Delivery failures are notified and
// recorded on the Outcome, not returned; an error is returned only when a
// submit is already running or the report could not be produced.
func (pl *Pipeline) Submit(ctx context.Context) (Outcome, error) {
	if !pl.submitting.CompareAndSwap(false, true) {
		return Outcome{}, ErrSubmitInProgress
	}
	defer pl.submitting.Store(false)

	snap := pl.controller.Snapshot()
	if _, ok := validation.ValidateAll(snap.State); !ok {
		pl.logger.Debug("submission aborted: form invalid")
		return Outcome{Aborted: true}, nil
	}

	// the request and the PDF are built from the same cleaned answers
	state := validation.SanitizeState(snap.State)

	var out Outcome
	p, err := payload.Build(state, snap.Attachments, snap.MailGroup)
	if err != nil {
		pl.buildFailed(&out, err)
	} else {
		pl.deliver(ctx, p, &out)
	}

	out.Answers = answers.Collect(state, snap.Attachments, snap.MailGroup)

	// the report is produced whatever happened to the request
	reportCtx := context.WithoutCancel(ctx)
	doc, err := pl.renderer.Render(reportCtx, out.Answers)
	if err != nil {
		return out, pl.reportFailed(err)
	}
	location, err := pl.sink.Save(reportCtx, doc.Name, pdf.ContentType, doc.Data)
	if err != nil {
		return out, pl.reportFailed(err)
	}
	out.PDFLocation = location
	out.PDFPages = doc.Pages
	pl.logger.Info("report saved", zap.String("location", location), zap.Int("pages", doc.Pages))
	pl.notify(NotificationReport, notify.LevelInfo, "Report saved to "+location)

	pl.controller.Reset()
	return out, nil
}

func (pl *Pipeline) deliver(ctx context.Context, p *payload.Payload, out *Outcome) {
	if pl.poster == nil {
		pl.logger.Warn("no complaint endpoint configured, skipping delivery")
		return
	}

	resp, err := pl.poster.CreateComplaint(ctx, p)
	var apiErr *client.APIError
	switch {
	case err == nil:
		out.Submitted = true
		out.Response = resp
		pl.logger.Info("complaint submitted",
			zap.Int("status", resp.Status),
			zap.String("request_id", resp.RequestID),
		)
		pl.notify(NotificationResult, notify.LevelSuccess, "Report submitted successfully")
	case errors.Is(err, payload.ErrMissingFields):
		pl.buildFailed(out, err)
	case errors.As(err, &apiErr):
		out.ServerError = apiErr
		pl.logger.Warn("complaint rejected", zap.Int("status", apiErr.Status), zap.String("body", apiErr.Body))
		pl.notify(NotificationResult, notify.LevelError, serverMessage(apiErr))
	case errors.Is(err, client.ErrNetwork):
		out.NetworkError = err
		pl.logger.Error("complaint delivery failed", zap.Error(err))
		pl.notify(NotificationResult, notify.LevelError, "Network error: the report could not be sent")
	default:
		out.NetworkError = err
		pl.logger.Error("complaint delivery failed", zap.Error(err))
		pl.notify(NotificationResult, notify.LevelError, "The report could not be sent: "+err.Error())
	}
}

func (pl *Pipeline) buildFailed(out *Outcome, err error) {
	out.BuildError = err
	pl.logger.Warn("payload build failed", zap.Error(err))
	pl.notify(NotificationResult, notify.LevelError, "Could not prepare the report for sending: "+err.Error())
}

func (pl *Pipeline) reportFailed(err error) error {
	pl.logger.Error("report generation failed", zap.Error(err))
	pl.notify(NotificationReport, notify.LevelError, "Could not generate the PDF report")
	return fmt.Errorf("%w: %w", ErrReport, err)
}

func (pl *Pipeline) notify(id string, level notify.Level, msg string) {
	pl.notifier.Notify(notify.Notification{ID: id, Level: level, Message: msg})
}

func serverMessage(e *client.APIError) string {
	if e.Body == "" {
		return fmt.Sprintf("Server error (%d)", e.Status)
	}
	return fmt.Sprintf("Server error (%d): %s", e.Status, e.Body)
}
