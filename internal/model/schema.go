package model

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed message.schema.json
var messageSchemaJSON []byte

const messageSchemaURL = "message.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compileSchema() {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(messageSchemaJSON))
	if err != nil {
		schemaErr = errors.Wrap(err, "parse message schema")
		return
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(messageSchemaURL, doc); err != nil {
		schemaErr = errors.Wrap(err, "add message schema")
		return
	}

	schema, schemaErr = c.Compile(messageSchemaURL)
	if schemaErr != nil {
		schemaErr = errors.Wrap(schemaErr, "compile message schema")
	}
}

// validatePayload checks a single raw message object against the schema.
func validatePayload(raw []byte) error {
	schemaOnce.Do(compileSchema)
	if schemaErr != nil {
		return schemaErr
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrapf(ErrMalformedPayload, "invalid json: %v", err)
	}
	if err := schema.Validate(inst); err != nil {
		return errors.Wrapf(ErrMalformedPayload, "%v", err)
	}
	return nil
}
