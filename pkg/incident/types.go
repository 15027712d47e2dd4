package incident

import (
	"fmt"
	"strings"
)

// Field identifies a single input on the form.
type Field string

const (
	FieldTypeOfAct           Field = "typeOfAct"
	FieldPrefix              Field = "prefix"
	FieldFirstName           Field = "firstName"
	FieldMiddleName          Field = "middleName"
	FieldLastName            Field = "lastName"
	FieldEmploymentType      Field = "employmentType"
	FieldEmail               Field = "email"
	FieldPhone               Field = "phone"
	FieldDate                Field = "date"
	FieldTime                Field = "time"
	FieldAMPM                Field = "ampm"
	FieldLocation            Field = "location"
	FieldUnitName            Field = "unitName"
	FieldAreaName            Field = "areaName"
	FieldReportedToOfficials Field = "reportedToOfficials"
	FieldDetails             Field = "details"
	FieldMailGroupID         Field = "mailGroupId"
)

// Fields lists every form field in display order.
var Fields = []Field{
	FieldTypeOfAct,
	FieldPrefix,
	FieldFirstName,
	FieldMiddleName,
	FieldLastName,
	FieldEmploymentType,
	FieldEmail,
	FieldPhone,
	FieldDate,
	FieldTime,
	FieldAMPM,
	FieldLocation,
	FieldUnitName,
	FieldAreaName,
	FieldReportedToOfficials,
	FieldDetails,
	FieldMailGroupID,
}

// Step is one of the three sequential form screens.
type Step int

const (
	Step1 Step = iota + 1
	Step2
	Step3
)

// Steps lists the screens in order.
var Steps = []Step{Step1, Step2, Step3}

func (s Step) String() string {
	return fmt.Sprintf("step %d", int(s))
}

// Valid reports whether s names one of the three screens.
func (s Step) Valid() bool {
	return s >= Step1 && s <= Step3
}

// FormState is the single in-progress submission. Every value is addressable
// by its Field name; the zero value is the initial default.
type FormState struct {
	TypeOfAct           string `yaml:"typeOfAct" json:"typeOfAct"`
	Prefix              string `yaml:"prefix" json:"prefix"`
	FirstName           string `yaml:"firstName" json:"firstName"`
	MiddleName          string `yaml:"middleName" json:"middleName"`
	LastName            string `yaml:"lastName" json:"lastName"`
	EmploymentType      string `yaml:"employmentType" json:"employmentType"`
	Email               string `yaml:"email" json:"email"`
	Phone               string `yaml:"phone" json:"phone"`
	Date                string `yaml:"date" json:"date"`
	Time                string `yaml:"time" json:"time"`
	AMPM                string `yaml:"ampm" json:"ampm"`
	Location            string `yaml:"location" json:"location"`
	UnitName            string `yaml:"unitName" json:"unitName"`
	AreaName            string `yaml:"areaName" json:"areaName"`
	ReportedToOfficials string `yaml:"reportedToOfficials" json:"reportedToOfficials"`
	Details             string `yaml:"details" json:"details"`
	MailGroupID         string `yaml:"mailGroupId" json:"mailGroupId"`
}

// NewFormState returns the initial defaults.
func NewFormState() FormState {
	return FormState{}
}

// IsZero reports whether the state still equals its initial defaults.
func (s FormState) IsZero() bool {
	return s == NewFormState()
}

// Clone returns an independent copy.
func (s FormState) Clone() FormState {
	return s
}

// Get returns the value stored under field. Unknown fields yield "".
func (s *FormState) Get(field Field) string {
	if p := s.ptr(field); p != nil {
		return *p
	}
	return ""
}

// Set writes value under field.
func (s *FormState) Set(field Field, value string) error {
	p := s.ptr(field)
	if p == nil {
		return fmt.Errorf("incident: unknown field %q", field)
	}
	*p = value
	return nil
}

// Values returns the flat field name to value mapping.
func (s FormState) Values() map[Field]string {
	out := make(map[Field]string, len(Fields))
	for _, f := range Fields {
		out[f] = s.Get(f)
	}
	return out
}

// FullName joins prefix, first, middle and last name with single spaces.
func (s FormState) FullName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Prefix, s.FirstName, s.MiddleName, s.LastName} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

func (s *FormState) ptr(field Field) *string {
	switch field {
	case FieldTypeOfAct:
		return &s.TypeOfAct
	case FieldPrefix:
		return &s.Prefix
	case FieldFirstName:
		return &s.FirstName
	case FieldMiddleName:
		return &s.MiddleName
	case FieldLastName:
		return &s.LastName
	case FieldEmploymentType:
		return &s.EmploymentType
	case FieldEmail:
		return &s.Email
	case FieldPhone:
		return &s.Phone
	case FieldDate:
		return &s.Date
	case FieldTime:
		return &s.Time
	case FieldAMPM:
		return &s.AMPM
	case FieldLocation:
		return &s.Location
	case FieldUnitName:
		return &s.UnitName
	case FieldAreaName:
		return &s.AreaName
	case FieldReportedToOfficials:
		return &s.ReportedToOfficials
	case FieldDetails:
		return &s.Details
	case FieldMailGroupID:
		return &s.MailGroupID
	default:
		return nil
	}
}

// Attachment is a file reference queued for upload.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Path     string `json:"path,omitempty"`
	Data     []byte `json:"-"`
}

// ErrorSet flags fields that failed validation.
type ErrorSet map[Field]bool

// Has reports whether field is flagged.
func (e ErrorSet) Has(field Field) bool {
	return e[field]
}

// Fields returns the flagged fields in display order.
func (e ErrorSet) Fields() []Field {
	var out []Field
	for _, f := range Fields {
		if e[f] {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns an independent copy.
func (e ErrorSet) Clone() ErrorSet {
	out := make(ErrorSet, len(e))
	for k, v := range e {
		if v {
			out[k] = true
		}
	}
	return out
}

// MailGroup is a named distribution list notified on submission.
type MailGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Key  string `json:"key"`
}
