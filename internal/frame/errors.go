package frame

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns that are absent from a frame.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}
