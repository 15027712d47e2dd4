// Package incident defines the data model shared by the reporting form: the
// flat FormState keyed by field name, attachments, the derived ErrorSet, the
// remote MailGroup record, and the static label to code tables the transport
// payload relies on. Field names are the identifiers used throughout the
// validators, the step controller, and the answers collector, so callers can
// address any input uniformly with Get/Set.
package incident
