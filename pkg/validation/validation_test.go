package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

func completeState() incident.FormState {
	return incident.FormState{
		TypeOfAct:           "Unsafe Act",
		EmploymentType:      "Employee",
		Date:                "2024-01-05",
		Time:                "11:30",
		AMPM:                "PM",
		Location:            "Dock 4",
		AreaName:            "Warehouse",
		ReportedToOfficials: "Yes",
		Details:             "Forklift reversing without spotter",
	}
}

func TestValidateStepMarksExactlyMissingFields(t *testing.T) {
	for _, step := range incident.Steps {
		required := RequiredFields(step)
		// every non-empty subset of required fields is blanked in turn
		for mask := 1; mask < 1<<len(required); mask++ {
			state := completeState()
			want := incident.ErrorSet{}
			for i, f := range required {
				if mask&(1<<i) != 0 {
					_ = state.Set(f, "")
					want[f] = true
				}
			}
			got := ValidateStep(step, state)
			if got.OK {
				t.Fatalf("%s mask %b: expected failure", step, mask)
			}
			if diff := cmp.Diff(want, got.Errors); diff != "" {
				t.Fatalf("%s mask %b: errors mismatch (-want +got):\n%s", step, mask, diff)
			}
		}
	}
}

func TestValidateStepPasses(t *testing.T) {
	state := completeState()
	for _, step := range incident.Steps {
		if r := ValidateStep(step, state); !r.OK || len(r.Errors) != 0 {
			t.Fatalf("%s: expected pass, got %+v", step, r)
		}
	}
	if _, ok := ValidateAll(state); !ok {
		t.Fatalf("expected all steps to pass")
	}
}

func TestValidateStepTrimsDetails(t *testing.T) {
	state := completeState()
	state.Details = "   \n\t "
	r := ValidateStep(incident.Step3, state)
	if r.OK || !r.Errors.Has(incident.FieldDetails) {
		t.Fatalf("whitespace-only details should fail: %+v", r)
	}
	if !strings.Contains(r.Error(), "details") {
		t.Fatalf("error should name the field: %s", r.Error())
	}
}

func TestValidateAllReportsEachStep(t *testing.T) {
	state := completeState()
	state.TypeOfAct = ""
	state.Location = ""
	results, ok := ValidateAll(state)
	if ok {
		t.Fatalf("expected failure")
	}
	if len(results) != 3 || results[0].OK || results[1].OK || !results[2].OK {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestApplyWordLimitRejectsExcess(t *testing.T) {
	current := strings.Repeat("word ", MaxDetailsWords-1)
	next := current + "one two"

	got, err := ApplyWordLimit(current, next, MaxDetailsWords)
	if !errors.Is(err, ErrWordLimit) {
		t.Fatalf("expected ErrWordLimit, got %v", err)
	}
	if got != current {
		t.Fatalf("rejected edit must keep the previous text")
	}

	atCap := current + "one"
	got, err = ApplyWordLimit(current, atCap, MaxDetailsWords)
	if err != nil || got != atCap {
		t.Fatalf("edit at the cap should be accepted: %v", err)
	}
	if CountWords(got) != MaxDetailsWords {
		t.Fatalf("expected %d words, got %d", MaxDetailsWords, CountWords(got))
	}
}

func TestWordCountNeverExceedsCapAcrossEdits(t *testing.T) {
	text := ""
	for i := 0; i < 40; i++ {
		next := text + strings.Repeat(" w", i)
		text, _ = ApplyWordLimit(text, next, 100)
		if CountWords(text) > 100 {
			t.Fatalf("cap exceeded after edit %d", i)
		}
	}
}

func TestAddAttachments(t *testing.T) {
	existing := []incident.Attachment{
		{Name: "a.pdf", MIMEType: "application/pdf", Size: 10},
		{Name: "b.png", MIMEType: "image/png", Size: 10},
	}
	incoming := []incident.Attachment{
		{Name: "huge.pdf", MIMEType: "application/pdf", Size: MaxAttachmentSize + 1},
		{Name: "script.exe", MIMEType: "application/octet-stream", Size: 10},
		{Name: "c.docx", MIMEType: "application/zip", Size: 10},
		{Name: "d.doc", Size: 10},
		{Name: "e.jpg", MIMEType: "image/jpeg", Size: MaxAttachmentSize},
		{Name: "f.gif", MIMEType: "image/gif", Size: 10},
	}

	got, rejected := AddAttachments(existing, incoming)

	var names []string
	for _, a := range got {
		names = append(names, a.Name)
	}
	wantNames := []string{"a.pdf", "b.png", "c.docx", "d.doc", "e.jpg"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Fatalf("accepted mismatch (-want +got):\n%s", diff)
	}

	wantRejected := []FileError{
		{Name: "huge.pdf", Reason: ReasonTooLarge},
		{Name: "script.exe", Reason: ReasonType},
		{Name: "f.gif", Reason: ReasonTooMany},
	}
	if diff := cmp.Diff(wantRejected, rejected); diff != "" {
		t.Fatalf("rejected mismatch (-want +got):\n%s", diff)
	}
}

func TestAddAttachmentsReportsExistingOverflow(t *testing.T) {
	var existing []incident.Attachment
	for _, name := range []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf", "5.pdf", "6.pdf", "7.pdf"} {
		existing = append(existing, incident.Attachment{Name: name, MIMEType: "application/pdf", Size: 1})
	}

	got, rejected := AddAttachments(existing, []incident.Attachment{{Name: "8.png", MIMEType: "image/png", Size: 1}})
	if len(got) != MaxAttachments || got[MaxAttachments-1].Name != "5.pdf" {
		t.Fatalf("expected the first %d files to be kept, got %+v", MaxAttachments, got)
	}

	want := []FileError{
		{Name: "6.pdf", Reason: ReasonTooMany},
		{Name: "7.pdf", Reason: ReasonTooMany},
		{Name: "8.png", Reason: ReasonTooMany},
	}
	if diff := cmp.Diff(want, rejected); diff != "" {
		t.Fatalf("rejected mismatch (-want +got):\n%s", diff)
	}
}

func TestAllowedTypeIgnoresMIMEParameters(t *testing.T) {
	a := incident.Attachment{Name: "scan", MIMEType: "application/pdf; charset=binary"}
	if !AllowedType(a) {
		t.Fatalf("expected pdf with parameters to be allowed")
	}
}

func TestSanitizeTextStripsMarkup(t *testing.T) {
	got := SanitizeText("  <b>Spill</b> near bay 3 & 4  ")
	if got != "Spill near bay 3 & 4" {
		t.Fatalf("unexpected sanitised text %q", got)
	}
}

func TestSanitizeTextKeepsPlainComparisons(t *testing.T) {
	cases := map[string]string{
		"a<b and c>d":  "a<b and c>d",
		"  temp < 30 ": "temp < 30",
		"Valve pressure a<b and flow c>d, check pipe <insulation> on line 3": "Valve pressure a<b and flow c>d, check pipe <insulation> on line 3",
		"x <= y & y >= z":                        "x <= y & y >= z",
		"<script>alert(1)</script>Leak":          "Leak",
		"Rail <!-- hidden --> loose":             "Rail  loose",
		`<img src="x" onerror="alert(1)">Ladder`: "Ladder",
	}
	for in, want := range cases {
		if got := SanitizeText(in); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsMarkup(t *testing.T) {
	for _, s := range []string{"<b>x</b>", "</p>", "<br/>", "<!-- c -->", `<a href="x">`} {
		if !ContainsMarkup(s) {
			t.Errorf("ContainsMarkup(%q) = false", s)
		}
	}
	for _, s := range []string{"", "plain", "a<b and c>d", "<insulation>", "3 < 4 > 2", "<3"} {
		if ContainsMarkup(s) {
			t.Errorf("ContainsMarkup(%q) = true", s)
		}
	}
}

func TestSanitizeStateOnlyTouchesFreeText(t *testing.T) {
	in := completeState()
	in.FirstName = " <b>Ada</b> "
	in.Details = "Flow a<b and c>d"
	in.Location = "Dock <i>4</i>"

	got := SanitizeState(in)

	want := in
	want.FirstName = "Ada"
	want.Location = "Dock 4"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}
