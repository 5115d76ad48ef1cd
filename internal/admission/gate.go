package admission

import (
	"context"
	"log/slog"
)

// Gate is the full admission flow: validate, then consume on Found.
type Gate struct {
	Validator *Validator
	Consumer  *Consumer
	Logger    *slog.Logger
}

// Admit validates the caller and, only when the result is Found, consumes the token.
// If consumption fails the reserved counter slot is not released.
func (g *Gate) Admit(ctx context.Context, token, callerPhone string) (Result, error) {
	res, rec, err := g.Validator.Validate(ctx, token, callerPhone)
	if err != nil {
		return Result{}, err
	}

	logger := g.logger()
	if !res.Code.Admitted() {
		attrs := []any{"result", res.Code}
		if rec != nil {
			attrs = append(attrs, "job_post_id", rec.JobPostID)
		}
		logger.Info("caller rejected", attrs...)
		return res, nil
	}

	if err := g.Consumer.Consume(ctx, token); err != nil {
		logger.Error("consume after admission failed", "job_post_id", rec.JobPostID, "error", err)
		return Result{}, err
	}
	logger.Info("caller admitted", "job_post_id", rec.JobPostID)
	return res, nil
}

func (g *Gate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}
