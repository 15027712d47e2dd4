package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	incidentreport "github.com/goliatone/go-incident-report"
	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/pdf"
	"github.com/goliatone/go-incident-report/pkg/session"
	"github.com/goliatone/go-incident-report/pkg/storage"
	"github.com/goliatone/go-incident-report/pkg/validation"
)

// answersFile is the on-disk form used by submit and preview. Attachment
// paths are relative to the file itself.
type answersFile struct {
	incident.FormState `yaml:",inline"`
	Attachments        []string `yaml:"attachments"`
}

func readAnswers(path string) (answersFile, error) {
	var out answersFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read answers: %w", err)
	}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parse answers %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, p := range out.Attachments {
		if p != "" && !filepath.IsAbs(p) {
			out.Attachments[i] = filepath.Join(base, p)
		}
	}
	return out, nil
}

// loadAttachments reads each path. Unreadable files are reported as
// rejections so the rest still attach.
func loadAttachments(paths []string) ([]incident.Attachment, []error) {
	var files []incident.Attachment
	var errs []error
	for _, p := range paths {
		a, err := incident.LoadAttachment(p, validation.MaxAttachmentSize)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, a)
	}
	return files, errs
}

func (a *app) newClient() (*client.Client, error) {
	c, err := client.New(a.cfg.API.BaseURL,
		client.WithToken(a.cfg.API.Token),
		client.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout.Std()}),
		client.WithLogger(a.logger.Named("client")),
	)
	if err != nil {
		return nil, codeError(exitConfig, "%s", err)
	}
	return c, nil
}

func (a *app) reportOptions() []pdf.Option {
	opts := []pdf.Option{
		pdf.WithLogoTimeout(a.cfg.Report.LogoTimeout.Std()),
		pdf.WithLogger(a.logger.Named("pdf")),
	}
	if a.cfg.Report.Title != "" {
		opts = append(opts, pdf.WithTitle(a.cfg.Report.Title))
	}
	switch {
	case a.cfg.Report.LogoPath != "":
		opts = append(opts, pdf.WithLogo(pdf.FileLogo(a.cfg.Report.LogoPath)))
	case a.cfg.Report.LogoURL != "":
		opts = append(opts, pdf.WithLogo(pdf.HTTPLogo(http.DefaultClient, a.cfg.Report.LogoURL)))
	}
	return opts
}

func (a *app) reportSink() (storage.Sink, error) {
	local := storage.NewFileSink(a.cfg.Report.OutputDir, storage.WithOverwrite(a.cfg.Report.Overwrite))
	if !a.cfg.Minio.Enabled() {
		return local, nil
	}
	archive, err := storage.NewMinioSink(storage.MinioConfig{
		Endpoint:  a.cfg.Minio.Endpoint,
		AccessKey: a.cfg.Minio.AccessKey,
		SecretKey: a.cfg.Minio.SecretKey,
		Bucket:    a.cfg.Minio.Bucket,
		Prefix:    a.cfg.Minio.Prefix,
		UseSSL:    a.cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, codeError(exitConfig, "%s", err)
	}
	a.logger.Debug("archiving reports", zap.String("endpoint", a.cfg.Minio.Endpoint), zap.String("bucket", a.cfg.Minio.Bucket))
	return storage.NewMultiSink(local, a.logger.Named("storage"), archive), nil
}

// newSession wires a form session from configuration. Notifications go to
// the log and to any extra sinks.
func (a *app) newSession(sinks ...notify.Sink) (*session.Session, error) {
	c, err := a.newClient()
	if err != nil {
		return nil, err
	}
	sink, err := a.reportSink()
	if err != nil {
		return nil, err
	}
	centerOpts := []notify.Option{notify.WithSink(notify.LogSink(a.logger.Named("notify")))}
	for _, s := range sinks {
		centerOpts = append(centerOpts, notify.WithSink(s))
	}

	return incidentreport.New(
		session.WithLogger(a.logger),
		session.WithNotifier(notify.NewCenter(centerOpts...)),
		incidentreport.WithClient(c),
		incidentreport.WithReportOptions(a.reportOptions()...),
		session.WithSink(sink),
	), nil
}
