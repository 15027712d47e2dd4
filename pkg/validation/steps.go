package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-incident-report/pkg/incident"
)

// requiredFields lists the mandatory inputs for each screen.
var requiredFields = map[incident.Step][]incident.Field{
	incident.Step1: {
		incident.FieldTypeOfAct,
		incident.FieldEmploymentType,
	},
	incident.Step2: {
		incident.FieldDate,
		incident.FieldTime,
		incident.FieldAMPM,
		incident.FieldLocation,
		incident.FieldAreaName,
	},
	incident.Step3: {
		incident.FieldReportedToOfficials,
		incident.FieldDetails,
	},
}

// RequiredFields returns the mandatory fields for step.
func RequiredFields(step incident.Step) []incident.Field {
	return append([]incident.Field(nil), requiredFields[step]...)
}

// Result captures the outcome of validating one step. Errors carries a flag
// for every required field that was empty.
type Result struct {
	Step   incident.Step
	OK     bool
	Errors incident.ErrorSet
}

// Error renders the failed fields; it is only meaningful when OK is false.
func (r Result) Error() string {
	names := make([]string, 0, len(r.Errors))
	for _, f := range r.Errors.Fields() {
		names = append(names, string(f))
	}
	return fmt.Sprintf("validation: %s missing required fields: %s", r.Step, strings.Join(names, ", "))
}

// ValidateStep checks the required fields of step against state.
func ValidateStep(step incident.Step, state incident.FormState) Result {
	result := Result{
		Step:   step,
		Errors: incident.ErrorSet{},
	}
	for _, field := range requiredFields[step] {
		if strings.TrimSpace(state.Get(field)) == "" {
			result.Errors[field] = true
		}
	}
	result.OK = len(result.Errors) == 0
	return result
}

// ValidateAll runs every step validator in order and returns each result.
// The boolean is true only when all steps pass.
func ValidateAll(state incident.FormState) ([]Result, bool) {
	results := make([]Result, 0, len(incident.Steps))
	ok := true
	for _, step := range incident.Steps {
		r := ValidateStep(step, state)
		if !r.OK {
			ok = false
		}
		results = append(results, r)
	}
	return results, ok
}
