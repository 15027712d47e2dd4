package incident

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	a, err := LoadAttachment(path, 1<<20)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Name != "evidence.pdf" || a.Size != 13 || a.MIMEType != "application/pdf" {
		t.Fatalf("unexpected attachment %+v", a)
	}
	if string(a.Data) != "%PDF-1.4 test" {
		t.Fatalf("data not loaded")
	}
}

func TestLoadAttachmentSkipsReadingOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(path, make([]byte, 64), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	a, err := LoadAttachment(path, 32)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Size != 64 || a.Data != nil {
		t.Fatalf("expected metadata only, got size=%d data=%d", a.Size, len(a.Data))
	}
}

func TestLoadAttachmentMissing(t *testing.T) {
	if _, err := LoadAttachment(filepath.Join(t.TempDir(), "nope"), 0); err == nil {
		t.Fatalf("expected error")
	}
}
