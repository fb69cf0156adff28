package repository

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// contactsFileSchema describes the backing file: a JSON array of contacts.
const contactsFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name"],
    "properties": {
      "id": {"type": "integer", "minimum": 1},
      "name": {"type": "string"}
    }
  }
}`

var fileSchema = mustCompileSchema(contactsFileSchema)

func mustCompileSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile contacts file schema: %v", err))
	}
	return schema
}

// validateDocument checks raw file contents against the contacts file schema
func validateDocument(data []byte) error {
	result, err := fileSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("parse contacts file: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("contacts file does not match schema: %s", strings.Join(errs, "; "))
}
