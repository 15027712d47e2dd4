package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/validation"
)

type submitterFunc func(ctx context.Context, id string, a client.ReviewAction) (*client.Response, error)

func (f submitterFunc) CreateReviewAction(ctx context.Context, id string, a client.ReviewAction) (*client.Response, error) {
	return f(ctx, id, a)
}

func TestDialogStatusesFromContract(t *testing.T) {
	d, err := NewDialog("c-1", submitterFunc(nil))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	want := []string{"open", "in_progress", "resolved", "closed"}
	if diff := cmp.Diff(want, d.Statuses()); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
	if err := d.SetStatus("Resolved"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if err := d.SetStatus("archived"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestDialogWordCap(t *testing.T) {
	d, _ := NewDialog("c-1", submitterFunc(nil))
	if err := d.SetText("initial text"); err != nil {
		t.Fatalf("set: %v", err)
	}
	err := d.SetText(strings.Repeat("word ", validation.MaxActionWords+1))
	if !errors.Is(err, validation.ErrWordLimit) {
		t.Fatalf("expected ErrWordLimit, got %v", err)
	}
	if d.Text() != "initial text" {
		t.Fatalf("rejected edit must keep previous text, got %q", d.Text())
	}
	if d.Remaining() != validation.MaxActionWords-2 {
		t.Fatalf("remaining = %d", d.Remaining())
	}
}

func TestDialogSubmit(t *testing.T) {
	var got client.ReviewAction
	center := notify.NewCenter()
	d, _ := NewDialog("c-9", submitterFunc(func(_ context.Context, id string, a client.ReviewAction) (*client.Response, error) {
		if id != "c-9" {
			t.Errorf("complaint id = %q", id)
		}
		got = a
		return &client.Response{Status: 201}, nil
	}), WithNotifier(center))

	if err := d.Submit(context.Background()); !errors.Is(err, ErrEmptyAction) {
		t.Fatalf("expected ErrEmptyAction, got %v", err)
	}
	_ = d.SetText("Guard rail <i>installed</i>")
	if err := d.Submit(context.Background()); !errors.Is(err, ErrNoStatus) {
		t.Fatalf("expected ErrNoStatus, got %v", err)
	}
	_ = d.SetStatus("resolved")
	if err := d.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if diff := cmp.Diff(client.ReviewAction{Action: "Guard rail installed", Status: "resolved"}, got); diff != "" {
		t.Fatalf("action mismatch (-want +got):\n%s", diff)
	}
	if d.Text() != "" {
		t.Fatalf("dialog should clear after submit")
	}
	if a := center.Active(); len(a) != 1 || a[0].Level != notify.LevelSuccess {
		t.Fatalf("expected success notification, got %+v", a)
	}
}

func TestDialogSubmitFailureKeepsText(t *testing.T) {
	center := notify.NewCenter()
	d, _ := NewDialog("c-9", submitterFunc(func(context.Context, string, client.ReviewAction) (*client.Response, error) {
		return nil, &client.APIError{Status: 404, Body: "complaint not found"}
	}), WithNotifier(center))
	_ = d.SetText("Checked")
	_ = d.SetStatus("open")

	if err := d.Submit(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if d.Text() != "Checked" {
		t.Fatalf("text must survive a failed submit")
	}
	if a := center.Active(); len(a) != 1 || !strings.Contains(a[0].Message, "complaint not found") {
		t.Fatalf("expected error notification with body, got %+v", a)
	}
}

func TestNewDialogRequiresID(t *testing.T) {
	if _, err := NewDialog(" ", submitterFunc(nil)); err == nil {
		t.Fatalf("expected error")
	}
}
