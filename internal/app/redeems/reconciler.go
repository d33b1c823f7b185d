package redeems

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Reconciler makes the upstream reward list reflect the local catalogue and
// back-fills local records with upstream IDs. One pass runs at a time; a
// trigger arriving mid-pass queues exactly one follow-up pass.
type Reconciler struct {
	logger *slog.Logger

	rewards   RewardService
	store     *Store
	catalogue *Catalogue
	status    *StatusView

	passLock sync.Mutex // serializes catalogue mutation for a whole pass

	stateLock sync.Mutex
	running   bool
	pending   bool

	wg sync.WaitGroup
}

func NewReconciler(logger *slog.Logger, rewards RewardService, store *Store, catalogue *Catalogue, status *StatusView) *Reconciler {
	return &Reconciler{
		logger: logger,

		rewards:   rewards,
		store:     store,
		catalogue: catalogue,
		status:    status,
	}
}

// Trigger schedules an asynchronous reconcile. Triggers are coalesced: at
// most one pass runs and at most one follow-up is queued. No-op once ctx is
// done, so no new passes start after shutdown begins.
func (rec *Reconciler) Trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	rec.stateLock.Lock()
	if rec.running {
		rec.pending = true
		rec.stateLock.Unlock()
		return
	}
	rec.running = true
	rec.stateLock.Unlock()

	rec.wg.Add(1)
	go func() {
		defer rec.wg.Done()

		for {
			if err := rec.Reconcile(ctx); err != nil {
				rec.logger.Error("reconcile pass failed", "err", err)
			}

			rec.stateLock.Lock()
			if rec.pending && ctx.Err() == nil {
				rec.pending = false
				rec.stateLock.Unlock()
				continue
			}
			rec.running = false
			rec.pending = false
			rec.stateLock.Unlock()

			return
		}
	}()
}

// Wait blocks until the in-flight pass (and its queued follow-up) finish.
func (rec *Reconciler) Wait() {
	rec.wg.Wait()
}

// Reconcile runs one full pass. Per-record failures are logged and skipped;
// the pass completes best-effort. Upstream rewards with no local counterpart
// are left alone — the operator owns deletion.
func (rec *Reconciler) Reconcile(ctx context.Context) error {
	rec.passLock.Lock()
	defer rec.passLock.Unlock()

	reconcileRuns.Inc()

	upstream, err := rec.rewards.ListRewards(ctx)
	if err != nil {
		reconcileErrors.Inc()
		return fmt.Errorf("failed to list upstream rewards: %w", err)
	}

	upstreamByTitle := make(map[string]UpstreamReward, len(upstream))
	for _, up := range upstream {
		if _, ok := upstreamByTitle[up.Title]; ok {
			rec.logger.Warn("duplicate upstream reward title, ignoring the duplicate", "title", up.Title, "id", up.ID)
			continue
		}
		upstreamByTitle[up.Title] = up
	}

	status := rec.status.Snapshot()

	for _, redeem := range rec.catalogue.Snapshot() {
		if err := rec.reconcileOne(ctx, &redeem, upstreamByTitle, status); err != nil {
			reconcileErrors.Inc()
			rec.logger.Error("failed to reconcile redeem", "title", redeem.LocalTitle, "err", err)
		}
	}

	if err := rec.store.Save(rec.catalogue.Snapshot()); err != nil {
		return fmt.Errorf("failed to persist catalogue after reconcile: %w", err)
	}

	return nil
}

func (rec *Reconciler) reconcileOne(ctx context.Context, redeem *Redeem, upstreamByTitle map[string]UpstreamReward, status StreamStatus) error {
	fields := RewardFields{
		Title:               redeem.LocalTitle,
		Cost:                redeem.Cost,
		Prompt:              redeem.Prompt,
		CooldownSeconds:     redeem.CooldownSeconds,
		IsUserInputRequired: redeem.UserInputRequired,
		IsEnabled:           Active(redeem, status),
	}

	up, exists := upstreamByTitle[redeem.LocalTitle]
	if !exists {
		created, err := rec.rewards.CreateReward(ctx, fields)
		if err != nil {
			return fmt.Errorf("create reward: %w", err)
		}

		rec.catalogue.Mutate(redeem.LocalTitle, func(r *Redeem) {
			r.UpstreamID = created.ID
		})
		rec.logger.Info("created upstream reward", "title", redeem.LocalTitle, "id", created.ID)

		return nil
	}

	if redeem.UpstreamID != up.ID {
		rec.catalogue.Mutate(redeem.LocalTitle, func(r *Redeem) {
			r.UpstreamID = up.ID
		})
	}

	if !rewardDrifted(up, fields) {
		return nil
	}

	if _, err := rec.rewards.UpdateReward(ctx, up.ID, fields); err != nil {
		return fmt.Errorf("update reward: %w", err)
	}

	rec.logger.Info("updated upstream reward", "title", redeem.LocalTitle, "id", up.ID, "enabled", fields.IsEnabled)

	return nil
}

func rewardDrifted(up UpstreamReward, want RewardFields) bool {
	return up.Cost != want.Cost ||
		up.Prompt != want.Prompt ||
		up.CooldownSeconds != want.CooldownSeconds ||
		up.IsUserInputRequired != want.IsUserInputRequired ||
		up.IsEnabled != want.IsEnabled
}
