// Package storage persists generated artifacts. The file sink plays the
// role of a download into a local directory; the object store sink archives
// a copy to S3-compatible storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Sink stores a named artifact and returns where it ended up.
type Sink interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, name, contentType string, data []byte) (string, error)

// Save calls f.
func (f SinkFunc) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return f(ctx, name, contentType, data)
}

// FileSink writes artifacts into a directory.
type FileSink struct {
	dir       string
	overwrite bool
	perm      os.FileMode
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithOverwrite replaces an existing file instead of picking a free
// "name (n).ext" variant.
func WithOverwrite(overwrite bool) FileOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithFileMode sets the permission bits of written files.
func WithFileMode(perm os.FileMode) FileOption {
	return func(s *FileSink) {
		if perm != 0 {
			s.perm = perm
		}
	}
}

// NewFileSink returns a sink rooted at dir, created on first save.
func NewFileSink(dir string, options ...FileOption) *FileSink {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	s := &FileSink{dir: dir, perm: 0o644}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Save writes data under name and returns the file path.
func (s *FileSink) Save(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", errors.New("storage: empty file name")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create dir: %w", err)
	}

	if s.overwrite {
		path := filepath.Join(s.dir, name)
		if err := os.WriteFile(path, data, s.perm); err != nil {
			return "", fmt.Errorf("storage: write %s: %w", path, err)
		}
		return path, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(s.dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.perm)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("storage: create %s: %w", path, err)
		}
		_, werr := f.Write(data)
		cerr := f.Close()
		if err := errors.Join(werr, cerr); err != nil {
			return "", fmt.Errorf("storage: write %s: %w", path, err)
		}
		return path, nil
	}
}

// MultiSink saves to a primary sink and, best effort, to secondaries. Only
// the primary's result is returned.
type MultiSink struct {
	primary     Sink
	secondaries []Sink
	logger      *zap.Logger
}

// NewMultiSink fans out saves. Nil secondaries are ignored.
func NewMultiSink(primary Sink, logger *zap.Logger, secondaries ...Sink) *MultiSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MultiSink{primary: primary, logger: logger}
	for _, s := range secondaries {
		if s != nil {
			m.secondaries = append(m.secondaries, s)
		}
	}
	return m
}

// Save implements Sink.
func (m *MultiSink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	location, err := m.primary.Save(ctx, name, contentType, data)
	if err != nil {
		return "", err
	}
	for _, s := range m.secondaries {
		loc, serr := s.Save(ctx, name, contentType, data)
		if serr != nil {
			m.logger.Warn("secondary save failed", zap.String("name", name), zap.Error(serr))
			continue
		}
		m.logger.Info("artifact archived", zap.String("location", loc))
	}
	return location, nil
}
