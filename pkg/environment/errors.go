package environment

import (
	"fmt"
	"strings"
)

// RequiredEnvError reports API keys or other settings that are missing
// from every provider. When AnyOf is set the names are alternatives and
// setting a single one of them is enough.
type RequiredEnvError struct {
	Missing []string
	AnyOf   bool
}

func (e *RequiredEnvError) Error() string {
	names := strings.Join(e.Missing, ", ")
	switch {
	case e.AnyOf && len(e.Missing) > 1:
		return fmt.Sprintf("none of %s is set", names)
	case len(e.Missing) == 1:
		return fmt.Sprintf("environment variable %s is not set", names)
	default:
		return fmt.Sprintf("environment variables %s are not set", names)
	}
}
