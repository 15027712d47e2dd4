package answers

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

func TestCollectOrderedAnswers(t *testing.T) {
	state := incident.FormState{
		TypeOfAct:           "Near Miss",
		Prefix:              "Ms.",
		FirstName:           "Grace",
		LastName:            "Hopper",
		EmploymentType:      "Employee",
		Date:                "2024-01-05",
		Time:                "11:30",
		AMPM:                "pm",
		Location:            "Dock 4",
		AreaName:            "Warehouse",
		ReportedToOfficials: "No",
		Details:             "Pallet fell from rack",
	}
	attachments := []incident.Attachment{{Name: "photo.jpg"}, {Name: "witness.pdf"}}
	group := &incident.MailGroup{ID: "2", Name: "EHS Team"}

	got := Collect(state, attachments, group)
	want := []Answer{
		{LabelObservanceType, "Near Miss"},
		{LabelName, "Ms. Grace Hopper"},
		{LabelEmploymentType, "Employee"},
		{LabelEmail, "-"},
		{LabelPhone, "-"},
		{LabelIncidentTime, "2024-01-05 11:30 PM"},
		{LabelLocation, "Dock 4"},
		{LabelUnitName, "-"},
		{LabelArea, "Warehouse"},
		{LabelReported, "No"},
		{LabelDetails, "Pallet fell from rack"},
		{LabelAttachments, "photo.jpg, witness.pdf"},
		{LabelMailGroup, "EHS Team"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("answers mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectEmptyStateUsesPlaceholders(t *testing.T) {
	got := Collect(incident.NewFormState(), nil, nil)
	if len(got) != Count {
		t.Fatalf("expected %d answers, got %d", Count, len(got))
	}
	for _, a := range got {
		if a.Value != Placeholder {
			t.Fatalf("%s: expected placeholder, got %q", a.Label, a.Value)
		}
	}
}

func TestDisplayDateTime(t *testing.T) {
	tests := []struct {
		date, clock, ampm string
		want              string
	}{
		{"2024-01-05", "12:15", "AM", "2024-01-05 12:15 AM"},
		{"2024-01-05", "9:05", "PM", "2024-01-05 09:05 PM"},
		{"2024-01-05", "", "", "2024-01-05"},
		{"05/01/2024", "25:00", "PM", "05/01/2024 25:00 PM"},
		{"", "", "AM", ""},
	}
	for _, tt := range tests {
		if got := DisplayDateTime(tt.date, tt.clock, tt.ampm); got != tt.want {
			t.Fatalf("DisplayDateTime(%q,%q,%q) = %q, want %q", tt.date, tt.clock, tt.ampm, got, tt.want)
		}
	}
}

func TestRenderTextAlignsAndIndents(t *testing.T) {
	answers := []Answer{
		{LabelIncidentTime, "2024-01-05 11:30 PM"},
		{LabelDetails, "line one\nline two"},
	}
	out, err := RenderText("", answers)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, DefaultTitle+"\n") {
		t.Fatalf("missing title:\n%s", out)
	}
	if !strings.Contains(out, "Date & Time of Incident  2024-01-05 11:30 PM") {
		t.Fatalf("labels must not be escaped or misaligned:\n%s", out)
	}
	pad := strings.Repeat(" ", len(LabelIncidentTime)+2)
	if !strings.Contains(out, "\n"+pad+"line two") {
		t.Fatalf("continuation line not indented:\n%s", out)
	}
}
