// Package incidentreport is the entry point for the unsafe act / near miss
// reporting form. It assembles a session from an API endpoint, an output
// directory and optional archive storage.
package incidentreport

import (
	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/pdf"
	"github.com/goliatone/go-incident-report/pkg/session"
	"github.com/goliatone/go-incident-report/pkg/storage"
)

// Session aliases session.Session for callers that only import the root.
type Session = session.Session

// Option aliases session.Option.
type Option = session.Option

// New assembles a form session.
func New(options ...Option) *Session {
	return session.New(options...)
}

// WithClient uses c both to list mail groups and to post complaints.
func WithClient(c *client.Client) Option {
	return func(s *session.Session) {
		if c == nil {
			return
		}
		session.WithGroupLister(c)(s)
		session.WithPoster(c)(s)
	}
}

// WithAPI builds a client for baseURL with an optional bearer token.
func WithAPI(baseURL, token string, options ...client.Option) (Option, error) {
	c, err := client.New(baseURL, append([]client.Option{client.WithToken(token)}, options...)...)
	if err != nil {
		return nil, err
	}
	return WithClient(c), nil
}

// WithOutputDir saves reports into dir, and additionally archives them to
// each secondary sink.
func WithOutputDir(dir string, archives ...storage.Sink) Option {
	return session.WithSink(storage.NewMultiSink(storage.NewFileSink(dir), nil, archives...))
}

// WithReportOptions configures the PDF renderer.
func WithReportOptions(options ...pdf.Option) Option {
	return session.WithRenderer(pdf.New(options...))
}

// ContractDocument returns the embedded OpenAPI description of the
// complaints API.
func ContractDocument() []byte {
	return contract.Document()
}
