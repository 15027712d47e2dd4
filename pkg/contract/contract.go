// Package contract loads the OpenAPI description of the complaints API and
// exposes the pieces the client, payload builder and stub server need:
// method, path, request fields, required fields and binary file parts.
package contract

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var defaultDocument []byte

// Operation identifiers in the embedded document.
const (
	OpCreateComplaint    = "createComplaint"
	OpListMailGroups     = "listMailGroups"
	OpCreateReviewAction = "createReviewAction"
)

// ErrUnknownOperation is returned when an operation id is not described.
var ErrUnknownOperation = errors.New("contract: unknown operation")

// Operation describes one endpoint.
type Operation struct {
	ID          string
	Method      string
	Path        string
	ContentType string
	Fields      []string
	Required    []string
	FileFields  []string
	Enums       map[string][]string
}

// IsRequired reports whether name must be present in the request body.
func (o Operation) IsRequired(name string) bool {
	for _, r := range o.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Missing returns the required fields absent or blank in values, in
// contract order.
func (o Operation) Missing(values map[string]string) []string {
	var out []string
	for _, r := range o.Required {
		if strings.TrimSpace(values[r]) == "" {
			out = append(out, r)
		}
	}
	return out
}

// Expand substitutes {name} path parameters.
func (o Operation) Expand(params map[string]string) string {
	path := o.Path
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	return path
}

// Contract is a parsed API description keyed by operation id.
type Contract struct {
	operations map[string]Operation
}

var (
	defaultOnce     sync.Once
	defaultContract *Contract
	defaultErr      error
)

// Default returns the embedded contract, parsed once.
func Default() (*Contract, error) {
	defaultOnce.Do(func() {
		defaultContract, defaultErr = Load(context.Background(), defaultDocument)
	})
	return defaultContract, defaultErr
}

// Document returns the raw embedded OpenAPI document.
func Document() []byte {
	return append([]byte(nil), defaultDocument...)
}

// Load parses and validates an OpenAPI 3 document.
func Load(ctx context.Context, raw []byte) (*Contract, error) {
	if len(raw) == 0 {
		return nil, errors.New("contract: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("contract: load document: %w", err)
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("contract: validate: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("contract: document does not contain any paths")
	}

	c := &Contract{operations: make(map[string]Operation)}
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil || op.OperationID == "" {
				continue
			}
			c.operations[op.OperationID] = convertOperation(strings.ToUpper(method), path, op)
		}
	}
	return c, nil
}

// Operation looks up an operation by id.
func (c *Contract) Operation(id string) (Operation, error) {
	if c == nil {
		return Operation{}, ErrUnknownOperation
	}
	op, ok := c.operations[id]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	return op, nil
}

// Operations returns every operation id, sorted.
func (c *Contract) Operations() []string {
	ids := make([]string, 0, len(c.operations))
	for id := range c.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func convertOperation(method, path string, op *openapi3.Operation) Operation {
	out := Operation{
		ID:     op.OperationID,
		Method: method,
		Path:   path,
	}
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return out
	}

	content := op.RequestBody.Value.Content
	var schema *openapi3.Schema
	for _, mediaType := range []string{"multipart/form-data", "application/json", "application/x-www-form-urlencoded"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			out.ContentType = mediaType
			schema = mt.Schema.Value
			break
		}
	}
	if schema == nil {
		return out
	}

	out.Required = append([]string(nil), schema.Required...)
	for name, prop := range schema.Properties {
		out.Fields = append(out.Fields, name)
		if prop == nil || prop.Value == nil {
			continue
		}
		if prop.Value.Format == "binary" {
			out.FileFields = append(out.FileFields, name)
		}
		if len(prop.Value.Enum) > 0 {
			if out.Enums == nil {
				out.Enums = make(map[string][]string)
			}
			for _, v := range prop.Value.Enum {
				out.Enums[name] = append(out.Enums[name], fmt.Sprint(v))
			}
		}
	}
	sort.Strings(out.Fields)
	sort.Strings(out.FileFields)
	return out
}
