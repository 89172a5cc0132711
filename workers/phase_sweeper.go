package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"wordplay/game"
	"wordplay/store"
)

// PhaseSweeper finalizes solve proposals whose window ran out while nobody
// was acting on the game. Actions finalize lazily too, so a missed sweep
// only delays the solving_started broadcast.
type PhaseSweeper struct {
	store     store.Store
	engine    *game.Engine
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewPhaseSweeper(store store.Store, engine *game.Engine, interval time.Duration) *PhaseSweeper {
	return &PhaseSweeper{
		store:    store,
		engine:   engine,
		interval: interval,
	}
}

func (w *PhaseSweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithClock(w.engine.Clock()))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() {
			if n, err := w.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("phase sweep failed")
			} else if n > 0 {
				log.Debug().Int("games", n).Msg("phase sweep advanced games")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule phase sweep: %w", err)
	}

	w.scheduler = sched
	sched.Start()
	log.Info().Dur("interval", w.interval).Msg("phase sweeper started")
	return nil
}

// Sweep ticks every game with an expired proposal and reports how many
// produced events.
func (w *PhaseSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := w.engine.Clock().Now().Add(-game.ProposalWindow)
	ids, err := w.store.ListDueProposals(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	advanced := 0
	for _, id := range ids {
		events, err := w.engine.Tick(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("gameId", id).Msg("failed to advance game")
			continue
		}
		if len(events) > 0 {
			advanced++
		}
	}
	return advanced, nil
}

func (w *PhaseSweeper) Stop() {
	if w.scheduler == nil {
		return
	}
	if err := w.scheduler.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("phase sweeper shutdown")
	}
}
