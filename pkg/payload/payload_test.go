package payload

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/incident"
)

func TestMakeIncidentDate(t *testing.T) {
	tests := []struct {
		date, clock, ampm string
		want              string
	}{
		{"2024-01-05", "11:30", "PM", "2024-01-05 23:30:00"},
		{"2024-01-05", "12:15", "AM", "2024-01-05 00:15:00"},
		{"2024-01-05", "12:15", "PM", "2024-01-05 12:15:00"},
		{"2024-01-05", "1:05", "am", "2024-01-05 01:05:00"},
		{"2024-02-29", "09:00:30", "PM", "2024-02-29 21:00:30"},
	}
	for _, tt := range tests {
		got, err := MakeIncidentDate(tt.date, tt.clock, tt.ampm)
		if err != nil {
			t.Fatalf("MakeIncidentDate(%q,%q,%q): %v", tt.date, tt.clock, tt.ampm, err)
		}
		if got != tt.want {
			t.Fatalf("MakeIncidentDate(%q,%q,%q) = %q, want %q", tt.date, tt.clock, tt.ampm, got, tt.want)
		}
	}
}

func TestMakeIncidentDateRejectsInvalid(t *testing.T) {
	cases := [][3]string{
		{"05/01/2024", "11:30", "PM"},
		{"2024-01-05", "13:30", "PM"},
		{"2024-01-05", "0:30", "AM"},
		{"2024-01-05", "11:7", "PM"},
		{"2024-01-05", "11:30", "XM"},
		{"2024-01-05", "", "PM"},
	}
	for _, c := range cases {
		if _, err := MakeIncidentDate(c[0], c[1], c[2]); !errors.Is(err, ErrInvalidIncidentDate) {
			t.Fatalf("%v: expected ErrInvalidIncidentDate, got %v", c, err)
		}
	}
}

func completeState() incident.FormState {
	return incident.FormState{
		TypeOfAct:           "Near Miss",
		Prefix:              "Mr.",
		FirstName:           "Alan",
		LastName:            "  Turing ",
		EmploymentType:      "Visitor",
		Date:                "2024-01-05",
		Time:                "11:30",
		AMPM:                "PM",
		Location:            "Dock 4",
		AreaName:            "Rooftop",
		ReportedToOfficials: "yes",
		Details:             "Loose cable across walkway",
	}
}

func TestBuildMapsCodesAndFixedValues(t *testing.T) {
	p, err := Build(completeState(), nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	values := p.Values()
	want := map[string]string{
		KeyObservanceType:   "3",
		KeyPrefix:           "Mr.",
		KeyFirstName:        "Alan",
		KeyMiddleName:       "",
		KeyLastName:         "Turing",
		KeyEmploymentType:   "3",
		KeyEmail:            "",
		KeyPhone:            "",
		KeyIncidentDate:     "2024-01-05 23:30:00",
		KeyLocation:         "Dock 4",
		KeyUnitName:         "",
		KeyArea:             "Rooftop",
		KeyReportedStatus:   "1",
		KeyDescription:      "Loose cable across walkway",
		KeyComplainantEmpID: "NA",
		KeyIsAnonymous:      "0",
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if _, ok := p.Get(KeyMailGroupID); ok {
		t.Fatalf("mail_group_id must be omitted without a selected group")
	}
}

func TestBuildBindsFilesAndMailGroup(t *testing.T) {
	var files []incident.Attachment
	for _, n := range []string{"a.png", "b.png", "c.png", "d.png", "e.png", "f.png"} {
		files = append(files, incident.Attachment{Name: n, MIMEType: "image/png", Data: []byte(n)})
	}
	p, err := Build(completeState(), files, &incident.MailGroup{ID: "9", Name: "EHS"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if v, _ := p.Get(KeyMailGroupID); v != "9" {
		t.Fatalf("mail_group_id = %q", v)
	}
	var keys []string
	for _, f := range p.Files() {
		keys = append(keys, f.Field)
	}
	want := []string{"file_1", "file_2", "file_3", "file_4", "file_5"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("file keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRequiredFieldsMatchContract(t *testing.T) {
	c, err := contract.Default()
	if err != nil {
		t.Fatalf("contract: %v", err)
	}
	op, _ := c.Operation(contract.OpCreateComplaint)
	p, err := Build(completeState(), nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := p.Check(op); err != nil {
		t.Fatalf("complete state should satisfy the contract: %v", err)
	}

	state := completeState()
	state.Details = "   "
	if _, err := Build(state, nil, nil); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields for blank description, got %v", err)
	}
}

func TestEncodeKeepsComparisonsInDescription(t *testing.T) {
	state := completeState()
	state.Details = "a<b and c>d"
	p, err := Build(state, nil, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	body, contentType, err := p.Body()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		t.Fatalf("content type %q: %v", contentType, err)
	}
	form, err := multipart.NewReader(body, params["boundary"]).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	defer form.RemoveAll()

	if got := form.Value[KeyDescription]; len(got) != 1 || got[0] != "a<b and c>d" {
		t.Fatalf("description = %q", got)
	}
}

func TestEncodeMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	files := []incident.Attachment{
		{Name: "photo.png", MIMEType: "image/png", Data: []byte("png-bytes")},
		{Name: "report.pdf", MIMEType: "application/pdf", Path: path},
	}
	p, err := Build(completeState(), files, nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	body, contentType, err := p.Body()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type %q: %v", contentType, err)
	}
	reader := multipart.NewReader(body, params["boundary"])
	form, err := reader.ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	defer form.RemoveAll()

	if got := form.Value[KeyIncidentDate]; len(got) != 1 || got[0] != "2024-01-05 23:30:00" {
		t.Fatalf("incident_date = %v", got)
	}
	fh := form.File["file_2"]
	if len(fh) != 1 || fh[0].Filename != "report.pdf" || fh[0].Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("file_2 header = %+v", fh)
	}
	f, err := fh[0].Open()
	if err != nil {
		t.Fatalf("open part: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "%PDF-1.4" {
		t.Fatalf("file_2 content = %q", data)
	}
}
