// Package payload serialises a validated form into the multipart body the
// complaint API accepts.
package payload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/validation"
)

// Wire field names.
const (
	KeyObservanceType   = "observance_type_id"
	KeyPrefix           = "prefix"
	KeyFirstName        = "first_name"
	KeyMiddleName       = "middle_name"
	KeyLastName         = "last_name"
	KeyEmploymentType   = "employment_type_id"
	KeyEmail            = "email"
	KeyPhone            = "phone_number"
	KeyIncidentDate     = "incident_date"
	KeyLocation         = "location"
	KeyUnitName         = "unit_name"
	KeyArea             = "area_id"
	KeyReportedStatus   = "reported_status_id"
	KeyDescription      = "description"
	KeyComplainantEmpID = "complainant_emp_id"
	KeyIsAnonymous      = "is_anonymous"
	KeyMailGroupID      = "mail_group_id"
)

// Fixed values sent with every complaint.
const (
	ComplainantEmpID = "NA"
	NotAnonymous     = "0"
)

// MaxFiles is the number of positional file slots.
const MaxFiles = validation.MaxAttachments

// ErrMissingFields is returned when required contract fields are blank.
var ErrMissingFields = errors.New("payload: missing required fields")

// Part is one text form field.
type Part struct {
	Name  string
	Value string
}

// File is one attachment bound to its positional key.
type File struct {
	Field      string
	Attachment incident.Attachment
}

// Payload is the transport representation of a complaint.
type Payload struct {
	parts []Part
	files []File
}

// FileKey returns the positional key for the i-th attachment (0-based).
func FileKey(i int) string {
	return "file_" + strconv.Itoa(i+1)
}

// Build maps the state to wire fields. Option labels are translated to
// their codes, falling back to the raw label; text is trimmed but otherwise
// sent as given, so callers sanitise the state first. Up to MaxFiles
// attachments are bound to file_1..file_N. A payload missing a field the
// complaint contract requires is rejected with ErrMissingFields.
func Build(state incident.FormState, attachments []incident.Attachment, group *incident.MailGroup) (*Payload, error) {
	incidentDate, err := MakeIncidentDate(state.Date, state.Time, state.AMPM)
	if err != nil {
		return nil, err
	}

	p := &Payload{}
	p.add(KeyObservanceType, incident.ObservanceTypes.Code(strings.TrimSpace(state.TypeOfAct)))
	p.add(KeyPrefix, strings.TrimSpace(state.Prefix))
	p.add(KeyFirstName, strings.TrimSpace(state.FirstName))
	p.add(KeyMiddleName, strings.TrimSpace(state.MiddleName))
	p.add(KeyLastName, strings.TrimSpace(state.LastName))
	p.add(KeyEmploymentType, incident.EmploymentTypes.Code(strings.TrimSpace(state.EmploymentType)))
	p.add(KeyEmail, strings.TrimSpace(state.Email))
	p.add(KeyPhone, strings.TrimSpace(state.Phone))
	p.add(KeyIncidentDate, incidentDate)
	p.add(KeyLocation, strings.TrimSpace(state.Location))
	p.add(KeyUnitName, strings.TrimSpace(state.UnitName))
	p.add(KeyArea, incident.Areas.Code(strings.TrimSpace(state.AreaName)))
	p.add(KeyReportedStatus, incident.ReportedStatuses.Code(strings.TrimSpace(state.ReportedToOfficials)))
	p.add(KeyDescription, strings.TrimSpace(state.Details))
	p.add(KeyComplainantEmpID, ComplainantEmpID)
	p.add(KeyIsAnonymous, NotAnonymous)
	if group != nil && strings.TrimSpace(group.ID) != "" {
		p.add(KeyMailGroupID, strings.TrimSpace(group.ID))
	}

	for i, a := range attachments {
		if i >= MaxFiles {
			break
		}
		p.files = append(p.files, File{Field: FileKey(i), Attachment: a})
	}

	op, err := createComplaint()
	if err != nil {
		return nil, err
	}
	if err := p.Check(op); err != nil {
		return nil, err
	}
	return p, nil
}

func createComplaint() (contract.Operation, error) {
	c, err := contract.Default()
	if err != nil {
		return contract.Operation{}, err
	}
	return c.Operation(contract.OpCreateComplaint)
}

func (p *Payload) add(name, value string) {
	p.parts = append(p.parts, Part{Name: name, Value: value})
}

// Parts returns the text fields in wire order.
func (p *Payload) Parts() []Part {
	return append([]Part(nil), p.parts...)
}

// Files returns the bound attachments.
func (p *Payload) Files() []File {
	return append([]File(nil), p.files...)
}

// Get returns the value of a text field and whether it is present.
func (p *Payload) Get(name string) (string, bool) {
	for _, part := range p.parts {
		if part.Name == name {
			return part.Value, true
		}
	}
	return "", false
}

// Values returns the text fields as a map.
func (p *Payload) Values() map[string]string {
	out := make(map[string]string, len(p.parts))
	for _, part := range p.parts {
		out[part.Name] = part.Value
	}
	return out
}

// Check verifies every required field of op is present and non-blank.
func (p *Payload) Check(op contract.Operation) error {
	if missing := op.Missing(p.Values()); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// Encode checks the payload against the complaint contract and writes it
// as multipart/form-data. It returns the Content-Type header value.
func (p *Payload) Encode(w io.Writer) (string, error) {
	op, err := createComplaint()
	if err != nil {
		return "", err
	}
	if err := p.Check(op); err != nil {
		return "", err
	}

	mw := multipart.NewWriter(w)
	for _, part := range p.parts {
		if err := mw.WriteField(part.Name, part.Value); err != nil {
			return "", fmt.Errorf("payload: write field %s: %w", part.Name, err)
		}
	}
	for _, f := range p.files {
		if err := writeFile(mw, f); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("payload: close multipart: %w", err)
	}
	return mw.FormDataContentType(), nil
}

// Body encodes the payload into memory.
func (p *Payload) Body() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	contentType, err := p.Encode(&buf)
	if err != nil {
		return nil, "", err
	}
	return &buf, contentType, nil
}

func writeFile(mw *multipart.Writer, f File) error {
	a := f.Attachment
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.Field, escapeQuotes(a.Name)))
	contentType := a.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	w, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("payload: create part %s: %w", f.Field, err)
	}

	if a.Data != nil {
		_, err = w.Write(a.Data)
	} else if a.Path != "" {
		err = copyFile(w, a.Path)
	} else {
		err = fmt.Errorf("no content for %q", a.Name)
	}
	if err != nil {
		return fmt.Errorf("payload: write %s: %w", f.Field, err)
	}
	return nil
}

func copyFile(w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
