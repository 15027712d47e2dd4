package contract

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultDescribesComplaint(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default contract: %v", err)
	}

	op, err := c.Operation(OpCreateComplaint)
	if err != nil {
		t.Fatalf("operation: %v", err)
	}
	if op.Method != "POST" || op.Path != "/api/complaints" || op.ContentType != "multipart/form-data" {
		t.Fatalf("unexpected operation %+v", op)
	}
	wantFiles := []string{"file_1", "file_2", "file_3", "file_4", "file_5"}
	if diff := cmp.Diff(wantFiles, op.FileFields); diff != "" {
		t.Fatalf("file fields mismatch (-want +got):\n%s", diff)
	}
	if !op.IsRequired("incident_date") || op.IsRequired("mail_group_id") {
		t.Fatalf("required set wrong: %v", op.Required)
	}
	if diff := cmp.Diff([]string{"0", "1"}, op.Enums["is_anonymous"]); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
}

func TestOperationsAndExpand(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default contract: %v", err)
	}
	want := []string{OpCreateComplaint, OpCreateReviewAction, OpListMailGroups}
	if diff := cmp.Diff(want, c.Operations()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}

	op, err := c.Operation(OpCreateReviewAction)
	if err != nil {
		t.Fatalf("operation: %v", err)
	}
	if got := op.Expand(map[string]string{"id": "42"}); got != "/api/complaints/42/actions" {
		t.Fatalf("expand = %q", got)
	}
	if op.ContentType != "application/json" {
		t.Fatalf("content type = %q", op.ContentType)
	}

	if _, err := c.Operation("deleteEverything"); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestMissingRequired(t *testing.T) {
	c, _ := Default()
	op, _ := c.Operation(OpCreateReviewAction)
	got := op.Missing(map[string]string{"action": "  "})
	if diff := cmp.Diff([]string{"action", "status"}, got); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	if _, err := Load(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty document")
	}
	if _, err := Load(context.Background(), []byte("openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths: {}\n")); err == nil {
		t.Fatalf("expected error for document without paths")
	}
}
