package errors

import "fmt"

// WrapWithContext wraps err as "context: err". It returns nil for a nil err.
func WrapWithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
