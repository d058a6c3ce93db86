package tools

// ReadOnlyAnnotations marks a tool that never touches the project tree.
func ReadOnlyAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":    true,
		"destructiveHint": false,
		"idempotentHint":  true,
		"openWorldHint":   false,
	}
}

// SafeWriteAnnotations marks a tool that writes files but can be re-run
// without changing the result.
func SafeWriteAnnotations() map[string]bool {
	return map[string]bool{
		"readOnlyHint":    false,
		"destructiveHint": false,
		"idempotentHint":  true,
		"openWorldHint":   false,
	}
}
