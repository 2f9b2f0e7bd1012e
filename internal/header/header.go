// Package header writes the generated version header consumed by the
// native build.
package header

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Symbol is the macro the header defines.
	Symbol = "CORE_VERSION"

	// RelPath is the header location relative to the entry point's
	// directory.
	RelPath = "core/core_version.h"
)

// ErrEmptyDescriptor is returned by Write for an empty descriptor.
var ErrEmptyDescriptor = errors.New("header: empty descriptor")

// Path returns the header path for an entry point path such as os.Args[0].
func Path(entry string) string {
	return filepath.Join(filepath.Dir(entry), RelPath)
}

// Format returns the single header line, without a trailing newline.
func Format(descriptor string) string {
	return fmt.Sprintf("#define %s \"%s\"", Symbol, descriptor)
}

// Write truncates path and writes the header line for descriptor.  The
// parent directory must already exist.
func Write(path, descriptor string) error {
	if descriptor == "" {
		return ErrEmptyDescriptor
	}
	if err := os.WriteFile(path, []byte(Format(descriptor)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
