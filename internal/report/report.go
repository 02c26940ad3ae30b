// Package report writes progress and result lines for long-running
// operations such as PGN imports.
package report

import (
	"io"
	"log"

	"github.com/google/uuid"
)

// Reporter writes timestamped progress lines. Each reporter carries a
// run identifier so lines from concurrent or interleaved runs can be
// told apart in a shared log.
type Reporter struct {
	logger *log.Logger
	run    string
}

// New returns a Reporter writing to out.
func New(out io.Writer) *Reporter {
	return &Reporter{
		logger: log.New(out, "", log.LstdFlags),
		run:    uuid.NewString()[:8],
	}
}

// RunID returns the run identifier.
func (r *Reporter) RunID() string {
	if r == nil {
		return ""
	}
	return r.run
}

// Printf writes one progress line. A nil Reporter discards output so
// callers need not guard every report site.
func (r *Reporter) Printf(format string, args ...any) {
	if r == nil {
		return
	}
	r.logger.Printf("["+r.run+"] "+format, args...)
}
