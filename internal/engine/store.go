// Package engine is the embedded record and counter store used for local runs and tests.
// It satisfies sdk.Store so the handlers cannot tell it apart from the DynamoDB backend.
package engine

import "github.com/celerix-dev/celerix-ivr/pkg/sdk"

// Standard errors for the engine.
// They alias the SDK errors so callers can match with errors.Is regardless of backend.
var (
	ErrNotFound     = sdk.ErrNotFound
	ErrInvalidCount = sdk.ErrInvalidCount
)

var _ sdk.Store = (*MemStore)(nil)
