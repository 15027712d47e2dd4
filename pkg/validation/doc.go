// Package validation holds the per-step field validators, the word caps for
// free-text inputs, and the attachment constraints (count, size, type).
// Validators are pure functions over incident.FormState; they never mutate
// the state and always return the full set of failing fields.
package validation
