// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaID = "https://authzmw.invalid/schema/authz-config.json"

// GenerateSchema reflects a JSON Schema document from the Configuration
// struct's field tags, describing the configuration document of spec.md
// §6, for the CLI's `schema` subcommand.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Configuration{})

	schema.ID = jsonschema.ID(schemaID)
	schema.Title = "Authorization Middleware Configuration"
	schema.Description = "Schema for the authorization middleware's startup configuration document"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_ERROR").In("config.schema").Wrapf(err, "marshaling schema")
	}
	return append(data, '\n'), nil
}

var schemaState struct {
	once   sync.Once
	schema *jschema.Schema
	err    error
}

// ValidateSchema validates a raw configuration document against the
// schema GenerateSchema produces, giving a schema-violation error a
// distinct, earlier failure point than C6's tolerant-decode errors.
func ValidateSchema(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_ERROR").In("config.schema").Wrapf(err, "decoding document for schema validation")
	}

	sch, err := getCompiledSchema()
	if err != nil {
		return oops.Code("CONFIG_ERROR").In("config.schema").Wrapf(err, "compiling schema")
	}
	if err := sch.Validate(doc); err != nil {
		return oops.Code("CONFIG_ERROR").In("config.schema").Wrapf(err, "schema validation failed")
	}
	return nil
}

func getCompiledSchema() (*jschema.Schema, error) {
	schemaState.once.Do(func() {
		schemaState.schema, schemaState.err = compileSchema()
	})
	return schemaState.schema, schemaState.err
}

func compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(schemaBytes, &doc); err != nil {
		return nil, oops.Code("CONFIG_ERROR").In("config.schema").Wrapf(err, "decoding generated schema")
	}

	compiler := jschema.NewCompiler()
	if err := compiler.AddResource(schemaID, doc); err != nil {
		return nil, oops.Code("CONFIG_ERROR").In("config.schema").Wrapf(err, "adding schema resource")
	}
	return compiler.Compile(schemaID)
}
