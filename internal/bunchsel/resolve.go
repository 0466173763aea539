package bunchsel

import (
	"context"
	"fmt"

	"github.com/vk/scangridgo/internal/ctxlog"
	"github.com/vk/scangridgo/internal/fillsch"
)

// Resolve fills in the per-beam bunch indices for a study whose
// check-bunch-number mode is on. Already-set indices pass through untouched.
//
// Beam 1 goes through the supplied policy. Beam 2 always auto-adopts the
// worst bunch with a logged notice: tracking beam 2 is not implemented
// downstream, so prompting for it would be noise. The asymmetry is
// deliberate and load-bearing for parity with the existing study pipelines.
func Resolve(ctx context.Context, scheme *fillsch.Scheme, b1, b2 *int, window int, policy Policy) (int, int, error) {
	logger := ctxlog.FromContext(ctx)

	r1, r2 := -1, -1
	if b1 != nil {
		r1 = *b1
	} else {
		worst, err := fillsch.WorstBunch(scheme, window, fillsch.Beam1)
		if err != nil {
			return 0, 0, fmt.Errorf("finding worst bunch for beam 1: %w", err)
		}
		idx, err := policy.Select(ctx, fillsch.Beam1, worst)
		if err != nil {
			return 0, 0, fmt.Errorf("selecting bunch for beam 1: %w", err)
		}
		r1 = idx
		logger.Info("Resolved bunch for beam 1.", "bunch", r1, "worst", worst)
	}

	if b2 != nil {
		r2 = *b2
	} else {
		worst, err := fillsch.WorstBunch(scheme, window, fillsch.Beam2)
		if err != nil {
			return 0, 0, fmt.Errorf("finding worst bunch for beam 2: %w", err)
		}
		r2 = worst
		logger.Info("Bunch for beam 2 not provided; adopting the worst bunch by default.", "bunch", r2)
	}

	return r1, r2, nil
}
