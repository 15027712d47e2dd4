// Package answers turns the form state into the fixed, ordered list of
// question label and display value pairs used by the PDF report and by the
// human review screen.
package answers

import (
	"strings"
	"time"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

// Placeholder is shown for empty optional values.
const Placeholder = "-"

// Labels in report order.
const (
	LabelObservanceType = "Type of Observance"
	LabelName           = "Name"
	LabelEmploymentType = "Employment Type"
	LabelEmail          = "Email"
	LabelPhone          = "Phone Number"
	LabelIncidentTime   = "Date & Time of Incident"
	LabelLocation       = "Location"
	LabelUnitName       = "Unit Name"
	LabelArea           = "Area"
	LabelReported       = "Reported to Officials"
	LabelDetails        = "Details"
	LabelAttachments    = "Attachments"
	LabelMailGroup      = "Notified Mail Group"
)

// Count is the number of pairs Collect always returns.
const Count = 13

// DisplayLayout formats the combined date and time.
const DisplayLayout = "2006-01-02 03:04 PM"

// Answer is a single question label and its display value.
type Answer struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Collect maps the state, attachments and selected group to the 13 report
// answers. The result is deterministic for equal inputs.
func Collect(state incident.FormState, attachments []incident.Attachment, group *incident.MailGroup) []Answer {
	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		if n := strings.TrimSpace(a.Name); n != "" {
			names = append(names, n)
		}
	}

	groupName := ""
	if group != nil {
		groupName = group.Name
		if groupName == "" {
			groupName = group.Key
		}
	}

	return []Answer{
		{LabelObservanceType, orDash(state.TypeOfAct)},
		{LabelName, orDash(state.FullName())},
		{LabelEmploymentType, orDash(state.EmploymentType)},
		{LabelEmail, orDash(state.Email)},
		{LabelPhone, orDash(state.Phone)},
		{LabelIncidentTime, orDash(DisplayDateTime(state.Date, state.Time, state.AMPM))},
		{LabelLocation, orDash(state.Location)},
		{LabelUnitName, orDash(state.UnitName)},
		{LabelArea, orDash(state.AreaName)},
		{LabelReported, orDash(state.ReportedToOfficials)},
		{LabelDetails, orDash(state.Details)},
		{LabelAttachments, orDash(strings.Join(names, ", "))},
		{LabelMailGroup, orDash(groupName)},
	}
}

// DisplayDateTime combines the separate date, time and meridiem inputs into
// one display string. Parts that cannot be parsed are joined verbatim.
func DisplayDateTime(date, clock, meridiem string) string {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	meridiem = strings.ToUpper(strings.TrimSpace(meridiem))
	if date == "" && clock == "" {
		return ""
	}

	if date != "" && clock != "" && meridiem != "" {
		if t, err := time.Parse("2006-01-02 3:04 PM", date+" "+clock+" "+meridiem); err == nil {
			return t.Format(DisplayLayout)
		}
	}
	return strings.TrimSpace(strings.Join(nonEmpty(date, clock, meridiem), " "))
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return strings.TrimSpace(v)
}
