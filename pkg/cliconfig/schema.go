package cliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "mqttswarm-config.json"

// configSchema describes a config file. Unknown keys are rejected so that a
// misspelled option fails loudly instead of silently falling back to a default.
const configSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "$defs": {
    "duration": {
      "type": "string",
      "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$"
    },
    "port": {"type": "integer", "minimum": 1, "maximum": 65535}
  },
  "properties": {
    "host": {"type": "string", "minLength": 1},
    "port": {"$ref": "#/$defs/port"},
    "username": {"type": "string"},
    "password": {"type": "string"},
    "keepAlive": {"$ref": "#/$defs/duration"},
    "clients": {"type": "integer", "minimum": 1},
    "spawnInterval": {"$ref": "#/$defs/duration"},
    "interruptGrace": {"$ref": "#/$defs/duration"},
    "signalInterval": {"$ref": "#/$defs/duration"},
    "rosterFile": {"type": "string"},
    "embeddedBroker": {"type": "boolean"},
    "subscribeTopic": {"type": "string", "minLength": 1},
    "qos": {"type": "integer", "minimum": 0, "maximum": 2},
    "waitForSubscription": {"type": "boolean"},
    "subscriptionTimeout": {"$ref": "#/$defs/duration"},
    "connectTimeout": {"$ref": "#/$defs/duration"},
    "publishTimeout": {"$ref": "#/$defs/duration"},
    "catalog": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "messages": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
        "topics": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
      }
    },
    "logLevel": {"type": "string", "pattern": "(?i)^(debug|info|warn|warning|error)$"},
    "logFormat": {"type": "string", "pattern": "(?i)^(text|json)$"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(configSchema)); err != nil {
			schemaErr = fmt.Errorf("failed to add config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks a decoded YAML document against the config schema.
func validateSchema(doc map[string]any) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees JSON-compatible types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not a plain mapping: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return err
	}

	err = schema.Validate(value)
	if err == nil {
		return nil
	}
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return err
	}

	var msgs []string
	collectSchemaErrors(validationErr, &msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		if field := fieldFromPointer(err.InstanceLocation); field != "" {
			*msgs = append(*msgs, field+": "+err.Message)
		} else {
			*msgs = append(*msgs, err.Message)
		}
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}

// fieldFromPointer converts a JSON Pointer into dot notation.
func fieldFromPointer(path string) string {
	path = strings.TrimPrefix(path, "/")
	return strings.ReplaceAll(path, "/", ".")
}
