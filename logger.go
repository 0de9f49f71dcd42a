package sectionflow

import "context"

type Logger interface {
	// Debug is used for diagnostics such as cache misses, fallbacks, and skipped updates.
	Debug(ctx context.Context, msg string, meta MKV)
	// Error is used when writing errors to the logs.
	Error(ctx context.Context, err error)
}

// MKV is a multiple key value store for the logger to format into its output. It is an
// alias so implementations outside this package need not depend on it.
type MKV = map[string]string
