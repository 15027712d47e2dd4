package incident

import "strings"

// OptionTable maps human-readable option labels to the numeric codes the
// complaint API expects.
type OptionTable struct {
	name   string
	labels []string
	codes  map[string]string
}

func newOptionTable(name string, pairs ...[2]string) OptionTable {
	t := OptionTable{
		name:  name,
		codes: make(map[string]string, len(pairs)),
	}
	for _, p := range pairs {
		t.labels = append(t.labels, p[0])
		t.codes[strings.ToLower(p[0])] = p[1]
	}
	return t
}

// Name identifies the table in logs.
func (t OptionTable) Name() string {
	return t.name
}

// Labels returns the selectable labels in display order.
func (t OptionTable) Labels() []string {
	return append([]string(nil), t.labels...)
}

// Lookup returns the code mapped to label, matching case-insensitively.
func (t OptionTable) Lookup(label string) (string, bool) {
	code, ok := t.codes[strings.ToLower(strings.TrimSpace(label))]
	return code, ok
}

// Code returns the code for label, falling back to the raw label when the
// table has no mapping.
func (t OptionTable) Code(label string) string {
	if code, ok := t.Lookup(label); ok {
		return code
	}
	return label
}

var (
	// ObservanceTypes categorises the safety event.
	ObservanceTypes = newOptionTable("observance_type",
		[2]string{"Unsafe Act", "1"},
		[2]string{"Unsafe Practice", "2"},
		[2]string{"Near Miss", "3"},
	)

	EmploymentTypes = newOptionTable("employment_type",
		[2]string{"Employee", "1"},
		[2]string{"Contractor", "2"},
		[2]string{"Visitor", "3"},
		[2]string{"Trainee", "4"},
	)

	Areas = newOptionTable("area",
		[2]string{"Production", "1"},
		[2]string{"Warehouse", "2"},
		[2]string{"Maintenance", "3"},
		[2]string{"Office", "4"},
		[2]string{"Laboratory", "5"},
		[2]string{"Yard", "6"},
		[2]string{"Other", "7"},
	)

	ReportedStatuses = newOptionTable("reported_status",
		[2]string{"Yes", "1"},
		[2]string{"No", "2"},
	)
)

// Prefixes are the honorifics offered for the name fields.
var Prefixes = []string{"Mr.", "Ms.", "Mrs.", "Dr."}

// Meridiems are the accepted values for FieldAMPM.
var Meridiems = []string{"AM", "PM"}
