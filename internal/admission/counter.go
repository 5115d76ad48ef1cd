package admission

import (
	"context"
	"fmt"

	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// CountField is the attribute holding the admitted-candidate tally.
const CountField = "count"

// Counter tracks how many candidates each job posting has admitted.
type Counter struct {
	Store sdk.CounterStore
	Table string
}

// TryAdmit reserves one slot for jobPostID if fewer than maxAllowed have been admitted.
// The check and the increment are one store operation, so concurrent callers racing
// for the last slot cannot both win. A non-positive maxAllowed admits nobody.
func (c *Counter) TryAdmit(ctx context.Context, jobPostID string, maxAllowed int64) (bool, error) {
	ok, err := c.Store.IncrementIfBelow(ctx, c.Table, jobPostID, CountField, maxAllowed)
	if err != nil {
		return false, fmt.Errorf("admission counter %s: %w", jobPostID, err)
	}
	return ok, nil
}

// Count returns the current tally for jobPostID, zero when absent.
func (c *Counter) Count(ctx context.Context, jobPostID string) (int64, error) {
	n, _, err := c.Store.GetCount(ctx, c.Table, jobPostID, CountField)
	if err != nil {
		return 0, fmt.Errorf("admission counter %s: %w", jobPostID, err)
	}
	return n, nil
}
