package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

const (
	// MaxAttachments caps the number of queued files.
	MaxAttachments = 5
	// MaxAttachmentSize caps a single file in bytes.
	MaxAttachmentSize int64 = 6 << 20
)

// FileReason classifies why a file was rejected.
type FileReason string

const (
	ReasonTooMany  FileReason = "too_many_files"
	ReasonTooLarge FileReason = "file_too_large"
	ReasonType     FileReason = "file_type_not_allowed"
)

// FileError reports a single rejected attachment. Other files in the same
// batch are unaffected.
type FileError struct {
	Name   string
	Reason FileReason
}

func (e FileError) Error() string {
	switch e.Reason {
	case ReasonTooMany:
		return fmt.Sprintf("validation: %s skipped, at most %d files can be attached", e.Name, MaxAttachments)
	case ReasonTooLarge:
		return fmt.Sprintf("validation: %s exceeds the %d MB limit", e.Name, MaxAttachmentSize>>20)
	case ReasonType:
		return fmt.Sprintf("validation: %s is not a PDF, Word document or image", e.Name)
	default:
		return fmt.Sprintf("validation: %s rejected", e.Name)
	}
}

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".heic": {},
}

var allowedMIMETypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// AllowedType reports whether the attachment matches the allow-list by MIME
// type or by file extension.
func AllowedType(a incident.Attachment) bool {
	mimeType := strings.ToLower(strings.TrimSpace(a.MIMEType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	if _, ok := allowedMIMETypes[mimeType]; ok {
		return true
	}
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(a.Name))]
	return ok
}

// CheckAttachment validates size and type of a single file.
func CheckAttachment(a incident.Attachment) *FileError {
	if a.Size > MaxAttachmentSize {
		return &FileError{Name: a.Name, Reason: ReasonTooLarge}
	}
	if !AllowedType(a) {
		return &FileError{Name: a.Name, Reason: ReasonType}
	}
	return nil
}

// AddAttachments appends the acceptable files from incoming to existing.
// Each rejected file yields one FileError and is skipped; the returned list
// never exceeds MaxAttachments. Existing files past the cap are dropped and
// reported as ReasonTooMany.
func AddAttachments(existing, incoming []incident.Attachment) ([]incident.Attachment, []FileError) {
	out := make([]incident.Attachment, 0, MaxAttachments)
	var rejected []FileError
	for _, a := range existing {
		if len(out) >= MaxAttachments {
			rejected = append(rejected, FileError{Name: a.Name, Reason: ReasonTooMany})
			continue
		}
		out = append(out, a)
	}

	for _, a := range incoming {
		if fe := CheckAttachment(a); fe != nil {
			rejected = append(rejected, *fe)
			continue
		}
		if len(out) >= MaxAttachments {
			rejected = append(rejected, FileError{Name: a.Name, Reason: ReasonTooMany})
			continue
		}
		out = append(out, a)
	}
	return out, rejected
}
