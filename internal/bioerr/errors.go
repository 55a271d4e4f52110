// Package bioerr maps the six error kinds described in spec.md §7 onto
// github.com/grailbio/base/errors, the way encoding/pam/pamutil and
// encoding/fastq build their errors in the teacher repo.
package bioerr

import (
	"github.com/grailbio/base/errors"
)

// The six spec-level error kinds, expressed as grailbio/base/errors Kinds.
// BadConfig, BadInput and Conflict all terminate a command before any cycle
// begins, so they share errors.Invalid; CorruptBwt and IoError abort a
// running cycle, so they share errors.Internal.
const (
	BadInput    = errors.Invalid
	BadConfig   = errors.Invalid
	MissingFile = errors.NotExist
	CorruptBwt  = errors.Internal
	IoError     = errors.Internal
	Conflict    = errors.Invalid
)

// E builds an error of the given kind, in the same style as
// errors.E(errors.NotExist, path, cause) used throughout the teacher repo.
func E(kind errors.Kind, args ...interface{}) error {
	full := make([]interface{}, 0, len(args)+1)
	full = append(full, kind)
	full = append(full, args...)
	return errors.E(full...)
}

// Is reports whether err carries the given kind.
func Is(kind errors.Kind, err error) bool {
	e, ok := err.(*errors.Error)
	return ok && e.Kind == kind
}
