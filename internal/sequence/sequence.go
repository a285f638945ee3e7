// Package sequence produces human-readable sequential case codes of the
// form PREFIX_000001, zero-padded to a fixed width per type prefix.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// SuffixWidth is the zero-padded width of the numeric suffix
const SuffixWidth = 6

// NumberSource claims the next sequence number for a prefix. The relational
// store closes the read-then-write race with a row lock; the linked-record
// store cannot, so its duplicates surface later as a recoverable conflict.
type NumberSource interface {
	NextCaseNumber(ctx context.Context, prefix string) (int, error)
}

// Generator turns claimed sequence numbers into formatted case codes
type Generator struct {
	source NumberSource
	logger *zap.Logger
}

// NewGenerator creates a case code generator over the given backend
func NewGenerator(source NumberSource, logger *zap.Logger) *Generator {
	return &Generator{source: source, logger: logger}
}

// NextCode returns the next case code for the prefix, starting at
// PREFIX_000001 when no prior case exists
func (g *Generator) NextCode(ctx context.Context, prefix string) (string, error) {
	n, err := g.source.NextCaseNumber(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to claim sequence number for %s: %w", prefix, err)
	}
	code := Format(prefix, n)
	g.logger.Debug("assigned case code",
		zap.String("prefix", prefix),
		zap.String("case_code", code))
	return code, nil
}

// Format renders a case code from a prefix and a sequence number
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s_%0*d", prefix, SuffixWidth, n)
}

// ParseNumber extracts the numeric suffix of a case code under the given
// prefix. It returns false when the code does not belong to the prefix or
// the suffix is not an integer; callers fall back to starting the sequence
// over rather than failing the write.
func ParseNumber(code, prefix string) (int, bool) {
	suffix, ok := strings.CutPrefix(code, prefix+"_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
