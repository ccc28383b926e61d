package save

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scribl-v1.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// validate checks a decoded document against the format schema. The schema
// compiles once per process; a compilation failure surfaces on every call.
func validate(instance any) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("scribl-v1.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("scribl-v1.schema.json")
	})
	if schemaErr != nil {
		return schemaErr
	}
	return schema.Validate(instance)
}
