package admission

import (
	"context"
	"fmt"
	"strings"

	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// Consumer marks caller records as used.
type Consumer struct {
	Records sdk.ItemWriter
	Table   string
}

// Consume sets consumed=true on the record. Repeating it is harmless.
func (c *Consumer) Consume(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingInput
	}
	if err := c.Records.UpdateItem(ctx, c.Table, token, sdk.Item{"consumed": true}); err != nil {
		return fmt.Errorf("consume %s: %w", token, err)
	}
	return nil
}
