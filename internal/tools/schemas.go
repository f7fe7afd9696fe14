package tools

// ListTablesInput defines input for the list_tables tool (no input needed).
type ListTablesInput struct{}

// ReadTableInput defines input for the read_table tool.
type ReadTableInput struct {
	Table string `json:"table" jsonschema_description:"The name of the table to read (letters, digits, and underscores only)"`
}

// ExecuteSQLInput defines input for the execute_sql tool.
type ExecuteSQLInput struct {
	Query string `json:"query" jsonschema_description:"The SELECT statement to execute"`
}
