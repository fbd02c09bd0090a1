package oracle

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vybium/vybium-snippets/internal/vybium-snippets/snippet"
	"github.com/vybium/vybium-snippets/internal/vybium-snippets/utils"
)

// VerifyAll verifies s on every state, at most cfg.Workers at a time. Each
// verification links its own program and owns its own state. The first
// failure cancels the verifications that have not started yet.
func VerifyAll(ctx context.Context, s snippet.Snippet, states []snippet.ExecutionState, cfg *utils.Config) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(states))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	for i := range states {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome, err := Verify(s, states[i], cfg)
			if err != nil {
				return errors.Wrapf(err, "state %d", i)
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"snippet": s.Entrypoint(),
		"states":  len(states),
	}).Debug("verified all states")

	return outcomes, nil
}
