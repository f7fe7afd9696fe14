package tools

// Status indicates whether a tool call succeeded.
type Status string

const (
	// StatusSuccess indicates the tool call completed and Data is populated.
	StatusSuccess Status = "success"
	// StatusError indicates a business failure; Error describes it.
	StatusError Status = "error"
)

// Error codes returned to the model inside Result.Error.
const (
	// ErrCodeValidation marks rejected input (bad table name, non-SELECT query).
	ErrCodeValidation = "VALIDATION"
	// ErrCodeExecution marks a database failure. Details are withheld from
	// the model; operators find the cause in the server logs.
	ErrCodeExecution = "EXECUTION"
)

// Result is the uniform output of every tool call.
// Business failures are expressed through Status/Error rather than a Go
// error, so the model receives them as tool output and can correct itself.
// A Go error from a tool handler means infrastructure failure only
// (context cancellation).
type Result struct {
	Status Status         `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Error  *Error         `json:"error,omitempty"`
}

// Error is a structured tool failure the model can act on.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
