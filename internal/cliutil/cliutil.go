// Package cliutil holds the bits shared by all four beetl-* commands: s3
// transparency registration, the "-" means stdout convention for output
// paths, and the exit-code policy from
// spec.md §7.
package cliutil

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"

	"github.com/beetl-go/beetl/internal/bioerr"
)

var registerS3Once sync.Once

// RegisterS3 wires grailbio/base/file's "s3://" scheme the same way
// encoding/bamprovider's tests do, so every beetl-* command accepts S3
// prefixes for its BWT and output paths without callers special-casing them.
func RegisterS3() {
	registerS3Once.Do(func() {
		file.RegisterImplementation("s3", func() file.Implementation {
			return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
		})
	})
}

// OpenOutput opens path for writing, treating "-" as stdout (spec.md §6's
// "-o/--output FILE (default '-' = stdout)").
func OpenOutput(ctx context.Context, path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, bioerr.E(bioerr.IoError, "create output", path, err)
	}
	return writerCloser{f, ctx}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

type writerCloser struct {
	f   file.File
	ctx context.Context
}

func (w writerCloser) Write(p []byte) (int, error) { return w.f.Writer(w.ctx).Write(p) }
func (w writerCloser) Close() error                { return w.f.Close(w.ctx) }

// ExitCode maps an error to the process exit code spec.md §7 prescribes:
// config/input/conflict errors abort before any cycle runs (1); I/O and
// corruption errors abort mid-cycle, with partial output already flushed (2).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	e, ok := err.(*errors.Error)
	if !ok {
		return 1
	}
	switch e.Kind {
	case bioerr.IoError, bioerr.CorruptBwt:
		return 2
	default:
		return 1
	}
}
