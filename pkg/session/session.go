// Package session wires the step controller, the submission pipeline, the
// notification center and the API client into one form session. Mounting a
// session starts the one-shot mail-group fetch in the background; nothing
// the user does waits on it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/storage"
	"github.com/goliatone/go-incident-report/pkg/submission"
	"github.com/goliatone/go-incident-report/pkg/wizard"
)

// NotificationMailGroups identifies the fetch failure message.
const NotificationMailGroups = "mail-groups"

// ErrUnknownMailGroup is returned when selecting an id that was not fetched.
var ErrUnknownMailGroup = errors.New("session: unknown mail group")

// GroupLister fetches notification groups.
type GroupLister interface {
	ListMailGroups(ctx context.Context) ([]incident.MailGroup, error)
}

// Session is a single in-progress report.
type Session struct {
	controller *wizard.Controller
	pipeline   *submission.Pipeline
	notifier   *notify.Center
	lister     GroupLister
	logger     *zap.Logger

	poster   submission.Poster
	renderer submission.Renderer
	sink     storage.Sink

	mountOnce sync.Once
	fetched   chan struct{}
	eg        *errgroup.Group
	mu        sync.Mutex
	groups    []incident.MailGroup
}

// Option configures a Session.
type Option func(*Session)

// WithGroupLister sets the mail-group source.
func WithGroupLister(l GroupLister) Option {
	return func(s *Session) {
		s.lister = l
	}
}

// WithPoster sets the complaint collaborator.
func WithPoster(p submission.Poster) Option {
	return func(s *Session) {
		s.poster = p
	}
}

// WithRenderer overrides the PDF renderer.
func WithRenderer(r submission.Renderer) Option {
	return func(s *Session) {
		s.renderer = r
	}
}

// WithSink sets where reports are saved.
func WithSink(sink storage.Sink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithNotifier replaces the notification center.
func WithNotifier(c *notify.Center) Option {
	return func(s *Session) {
		if c != nil {
			s.notifier = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New assembles a session.
func New(options ...Option) *Session {
	s := &Session{
		notifier: notify.NewCenter(),
		logger:   zap.NewNop(),
		fetched:  make(chan struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}

	s.controller = wizard.New(
		wizard.WithNotifier(s.notifier),
		wizard.WithLogger(s.logger.Named("wizard")),
	)
	s.pipeline = submission.New(s.controller,
		submission.WithPoster(s.poster),
		submission.WithRenderer(s.renderer),
		submission.WithSink(s.sink),
		submission.WithNotifier(s.notifier),
		submission.WithLogger(s.logger.Named("submission")),
	)
	return s
}

// Controller returns the step controller.
func (s *Session) Controller() *wizard.Controller {
	return s.controller
}

// Notifications returns the notification center.
func (s *Session) Notifications() *notify.Center {
	return s.notifier
}

// Mount starts the mail-group fetch. Later calls are no-ops. The fetch is
// cancelled with ctx.
func (s *Session) Mount(ctx context.Context) {
	s.mountOnce.Do(func() {
		eg, gctx := errgroup.WithContext(ctx)
		s.mu.Lock()
		s.eg = eg
		s.mu.Unlock()
		eg.Go(func() error {
			defer close(s.fetched)
			return s.fetchGroups(gctx)
		})
	})
}

func (s *Session) fetchGroups(ctx context.Context) error {
	if s.lister == nil {
		return nil
	}
	groups, err := s.lister.ListMailGroups(ctx)
	if err != nil {
		s.logger.Warn("mail group fetch failed", zap.Error(err))
		s.notifier.Notify(notify.Notification{
			ID:      NotificationMailGroups,
			Level:   notify.LevelError,
			Message: "Could not load mail groups",
		})
		return fmt.Errorf("session: list mail groups: %w", err)
	}
	s.logger.Debug("mail groups loaded", zap.Int("count", len(groups)))
	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()
	return nil
}

// MailGroups waits for the fetch started by Mount and returns its result.
// A failed fetch yields an empty list. Without Mount it returns nothing.
func (s *Session) MailGroups(ctx context.Context) []incident.MailGroup {
	if !s.mounted() {
		return nil
	}
	select {
	case <-s.fetched:
	case <-ctx.Done():
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]incident.MailGroup(nil), s.groups...)
}

// SelectMailGroup picks a fetched group by id, name or key. An empty ref
// clears the selection.
func (s *Session) SelectMailGroup(ctx context.Context, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		s.controller.SelectMailGroup(nil)
		return nil
	}
	for _, g := range s.MailGroups(ctx) {
		if g.ID == ref || strings.EqualFold(g.Name, ref) || strings.EqualFold(g.Key, ref) {
			s.controller.SelectMailGroup(&g)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownMailGroup, ref)
}

// Submit runs the submission pipeline.
func (s *Session) Submit(ctx context.Context) (submission.Outcome, error) {
	return s.pipeline.Submit(ctx)
}

// Close waits for background work and returns the fetch error, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	eg := s.eg
	s.mu.Unlock()
	if eg == nil {
		return nil
	}
	return eg.Wait()
}

func (s *Session) mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eg != nil
}
