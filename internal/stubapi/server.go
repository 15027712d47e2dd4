// Package stubapi serves a local implementation of the complaints API for
// development and tests. Routes and request checks come from the embedded
// OpenAPI contract.
package stubapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/incident"
)

// DefaultMailGroups seeds the group list when none is configured.
var DefaultMailGroups = []incident.MailGroup{
	{ID: "1", Name: "Safety Committee", Key: "safety"},
	{ID: "2", Name: "Facilities", Key: "facilities"},
	{ID: "3", Name: "Human Resources", Key: "hr"},
}

// StoredFile is an uploaded attachment as received.
type StoredFile struct {
	Field       string
	Name        string
	ContentType string
	Size        int64
}

// Complaint is a complaint accepted by the stub.
type Complaint struct {
	ID        string
	Fields    map[string]string
	Files     []StoredFile
	Actions   []client.ReviewAction
	CreatedAt time.Time
}

// Server is an in-memory complaints API.
type Server struct {
	contract *contract.Contract
	groups   []incident.MailGroup
	token    string
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	mu         sync.RWMutex
	complaints map[string]*Complaint
	order      []string
}

// Option configures a Server.
type Option func(*Server)

// WithMailGroups replaces the seeded mail groups.
func WithMailGroups(groups ...incident.MailGroup) Option {
	return func(s *Server) {
		s.groups = append([]incident.MailGroup(nil), groups...)
	}
}

// WithToken requires "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = strings.TrimSpace(token)
	}
}

// WithContract serves c instead of the embedded contract.
func WithContract(c *contract.Contract) Option {
	return func(s *Server) {
		if c != nil {
			s.contract = c
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDFunc overrides complaint id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New builds a Server.
func New(options ...Option) (*Server, error) {
	s := &Server{
		groups:     append([]incident.MailGroup(nil), DefaultMailGroups...),
		logger:     zap.NewNop(),
		now:        time.Now,
		newID:      uuid.NewString,
		complaints: make(map[string]*Complaint),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.contract == nil {
		ct, err := contract.Default()
		if err != nil {
			return nil, err
		}
		s.contract = ct
	}
	return s, nil
}

// Handler returns the gin engine serving every contract operation.
func (s *Server) Handler() (http.Handler, error) {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if s.token != "" {
		r.Use(s.bearer())
	}

	handlers := map[string]func(contract.Operation) gin.HandlerFunc{
		contract.OpCreateComplaint:    s.createComplaint,
		contract.OpListMailGroups:     s.listMailGroups,
		contract.OpCreateReviewAction: s.createReviewAction,
	}
	for _, id := range s.contract.Operations() {
		build, ok := handlers[id]
		if !ok {
			s.logger.Debug("stub has no handler for operation", zap.String("operation", id))
			continue
		}
		op, err := s.contract.Operation(id)
		if err != nil {
			return nil, err
		}
		r.Handle(op.Method, ginPath(op.Path), build(op))
	}
	return r, nil
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("stubapi: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	handler, err := s.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("stub api listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("stubapi: shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

// Complaint returns a stored complaint by id.
func (s *Server) Complaint(id string) (Complaint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return Complaint{}, false
	}
	return c.clone(), true
}

// Complaints returns every stored complaint in arrival order.
func (s *Server) Complaints() []Complaint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Complaint, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.complaints[id].clone())
	}
	return out
}

func (c *Complaint) clone() Complaint {
	out := *c
	out.Fields = make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		out.Fields[k] = v
	}
	out.Files = append([]StoredFile(nil), c.Files...)
	out.Actions = append([]client.ReviewAction(nil), c.Actions...)
	return out
}

// ginPath turns "/a/{id}/b" into "/a/:id/b".
func ginPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			parts[i] = ":" + strings.TrimSuffix(strings.TrimPrefix(p, "{"), "}")
		}
	}
	return strings.Join(parts, "/")
}
