package hosts

import (
	"os"
	"strings"
)

// LoadFile reads a worker-host list: one hostname per line, trailing newline
// stripped. The contents are not validated; the external system owns the
// semantics of its host names.
func LoadFile(path string) ([]string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(buf), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines, nil
}
