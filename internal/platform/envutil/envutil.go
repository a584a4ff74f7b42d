// Package envutil reads typed settings from the environment.
package envutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// String returns the trimmed value of name, or def when it is unset or blank.
func String(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

// Int parses name as a base-10 integer. An unset or blank variable yields
// def; a value that does not parse is an error naming the variable.
func Int(name string, def int) (int, error) {
	v := String(name, "")
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not an integer: %w", name, v, err)
	}
	return i, nil
}
