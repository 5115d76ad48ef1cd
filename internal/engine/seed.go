package engine

import (
	"context"
	"fmt"

	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// Seed pushes caller records and job prompts into a destination store.
// This works for any backend:
// - Embedded bolt file (local interview rehearsals)
// - DynamoDB (loading invitations created out-of-band)
func Seed(ctx context.Context, dst sdk.ItemWriter, callerTable, promptTable string, file schema.SeedFile) error {
	for _, rec := range file.Callers {
		if rec.Token == "" {
			return fmt.Errorf("caller record for %q has no token", rec.CandidateName)
		}
		item, err := sdk.Encode(rec)
		if err != nil {
			return fmt.Errorf("failed to encode caller %s: %w", rec.Token, err)
		}
		if err := dst.UpdateItem(ctx, callerTable, rec.Token, item); err != nil {
			return fmt.Errorf("failed to set caller %s in destination: %w", rec.Token, err)
		}
	}

	for _, prompt := range file.Prompts {
		if prompt.JobPostID == "" {
			return fmt.Errorf("prompt has no job post id")
		}
		fields := sdk.Item{"jobPostId": prompt.JobPostID, "initialPrompt": prompt.InitialPrompt}
		if err := dst.UpdateItem(ctx, promptTable, prompt.JobPostID, fields); err != nil {
			return fmt.Errorf("failed to set prompt %s in destination: %w", prompt.JobPostID, err)
		}
	}

	return nil
}
