package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// Validator evaluates a one-time token against the caller record and the job quota.
type Validator struct {
	Records sdk.ItemReader
	Table   string
	Counter *Counter
	Now     func() time.Time
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Validate runs the checks in order; the first failing check decides the code.
// A successful quota check reserves the slot even though the token is not yet consumed.
func (v *Validator) Validate(ctx context.Context, token, callerPhone string) (Result, *schema.CallerRecord, error) {
	token, callerPhone = strings.TrimSpace(token), strings.TrimSpace(callerPhone)
	if token == "" || callerPhone == "" {
		return Result{}, nil, ErrMissingInput
	}

	rec, err := sdk.Get[schema.CallerRecord](ctx, v.Records, v.Table, token)
	if errors.Is(err, sdk.ErrNotFound) {
		return Result{Code: NotFound}, nil, nil
	}
	if err != nil {
		return Result{}, nil, fmt.Errorf("load caller record: %w", err)
	}
	rec.Token = token

	switch {
	case strings.TrimSpace(rec.PhoneNumber) != callerPhone:
		return Result{Code: PhoneNotMatch}, &rec, nil
	case rec.Consumed:
		return Result{Code: AlreadyCalled}, &rec, nil
	case rec.Expired(v.now()):
		return Result{Code: JobExpired}, &rec, nil
	}

	admitted, err := v.Counter.TryAdmit(ctx, rec.JobPostID, rec.MaxCandidates)
	if err != nil {
		return Result{}, nil, err
	}
	if !admitted {
		return Result{Code: NotAcceptingMoreCandidates}, &rec, nil
	}

	candidate := rec.Public()
	return Result{Code: Found, Candidate: &candidate}, &rec, nil
}
