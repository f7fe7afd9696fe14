package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Descriptor describes a tool for API clients: name, purpose, and the
// JSON schema of its input.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
}

// Descriptors returns a machine-readable description of every tool.
// Schemas are derived from the same input structs Genkit registration
// uses, so the two can not drift apart.
func Descriptors() ([]Descriptor, error) {
	listTablesSchema, err := jsonschema.For[ListTablesInput](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving %s schema: %w", ListTablesName, err)
	}
	readTableSchema, err := jsonschema.For[ReadTableInput](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving %s schema: %w", ReadTableName, err)
	}
	executeSQLSchema, err := jsonschema.For[ExecuteSQLInput](nil)
	if err != nil {
		return nil, fmt.Errorf("deriving %s schema: %w", ExecuteSQLName, err)
	}

	return []Descriptor{
		{
			Name:        ListTablesName,
			Description: "List the tables in the database",
			InputSchema: listTablesSchema,
		},
		{
			Name:        ReadTableName,
			Description: "Read the contents of a table in the database",
			InputSchema: readTableSchema,
		},
		{
			Name:        ExecuteSQLName,
			Description: "Execute a SQL query against the database",
			InputSchema: executeSQLSchema,
		},
	}, nil
}
