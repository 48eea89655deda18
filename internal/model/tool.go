package model

// ToolResult is the result of an external PostgreSQL tool execution.
// Output is forwarded unchanged to the caller.
type ToolResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
