package engine

import (
	"context"

	"hysteria/experiments/metrics"
	"hysteria/game"

	"github.com/rs/zerolog/log"
)

// Step plans and applies one turn and returns the joint action vector.
func (e *Engine) Step() []game.Action {
	actions, _ := e.StepContext(context.Background())
	return actions
}

// StepContext is Step with cancellation. A cancelled step leaves the world
// untouched and returns the context error.
func (e *Engine) StepContext(ctx context.Context) ([]game.Action, error) {
	if hash := e.world.Hash(); hash != e.hash {
		log.Debug().Msg("world was edited, replanting trees")
		e.replant()
	}

	turn := e.world.Turn()
	actions := make([]game.Action, len(e.trees))
	moves := make([]metrics.MoveMetric, 0, len(e.trees))
	for i, tree := range e.trees {
		metric := tree.SearchContext(ctx, e.simCtx)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		actions[i] = tree.BestAction()
		moves = append(moves, metrics.MoveMetric{
			Step:         int(turn),
			Player:       i,
			SearchMetric: metric,
		})
		log.Debug().Msgf("agent %d chose %v after %d episodes", i, actions[i], metric.Episodes)
	}
	if e.config.Metrics {
		e.moves = append(e.moves, moves...)
	}

	e.world.AdvanceTurn(actions)
	copy(e.last, actions)

	// The first action of each trajectory was just applied
	for i, tree := range e.trees {
		trajectory := tree.BestTrajectory()
		if len(trajectory) > 0 {
			trajectory = trajectory[1:]
		}
		e.simCtx.SetTrajectory(i, trajectory)
	}
	e.simCtx.SetBaseline(e.world.Turn())
	e.replant()

	return actions, nil
}

func (e *Engine) replant() {
	for _, tree := range e.trees {
		tree.Reset(e.world)
	}
	e.hash = e.world.Hash()
}

// Run steps until turns have been played or ctx is cancelled and returns
// the number of completed turns.
func (e *Engine) Run(ctx context.Context, turns int) (int, error) {
	log.Info().Msgf("running %d agents for %d turns", len(e.trees), turns)

	for played := 0; played < turns; played++ {
		actions, err := e.StepContext(ctx)
		if err != nil {
			log.Warn().Msgf("stopped after %d turns: %v", played, err)
			return played, err
		}

		scores := make([]int, len(e.trees))
		for i := range scores {
			scores[i] = e.world.Score(i)
		}
		log.Info().Msgf("turn %d: actions=%v scores=%v", e.world.Turn(), actions, scores)
	}

	return turns, nil
}
