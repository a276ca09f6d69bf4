package relationship

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// cascadeStep is one named, individually idempotent mutation inside a
// multi-collection operation. The store offers no transaction spanning these
// collections, so the operation is an ordered list of steps with per-step
// error isolation instead of an all-or-nothing commit.
type cascadeStep struct {
	name string
	// primary marks the step whose failure fails the whole operation.
	// Non-primary step failures are logged for operators and skipped over,
	// favoring eventual full consistency.
	primary bool
	run     func(ctx context.Context) error
}

// runCascade executes every step in order. A failed step never aborts the
// steps after it; replaying the whole cascade later converges to the same end
// state because each step is idempotent.
func runCascade(ctx context.Context, op string, steps []cascadeStep) error {
	var primaryErr error
	for _, s := range steps {
		err := s.run(ctx)
		if err == nil {
			continue
		}
		log.Warn().
			Err(err).
			Str("operation", op).
			Str("step", s.name).
			Bool("primary", s.primary).
			Msg("Cascade step failed")
		if s.primary && primaryErr == nil {
			primaryErr = fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return primaryErr
}
