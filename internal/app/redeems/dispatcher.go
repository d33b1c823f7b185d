package redeems

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	rewardQueueLen     = 64
	verdictMaxAttempts = 5
)

// Outcome is the record of one finished redemption, published for the
// history log and the dashboard stream.
type Outcome struct {
	Redemption Redemption       `json:"redemption"`
	Result     RedemptionResult `json:"result"`
	RedeemName string           `json:"redeem_name"`
	ActionKind ActionKind       `json:"action_kind"`
	Verdict    Status           `json:"verdict,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Dispatcher routes incoming redemptions to their handlers. Redemptions for
// the same reward run strictly in arrival order on a dedicated queue;
// distinct rewards run concurrently.
type Dispatcher struct {
	logger *slog.Logger

	catalogue *Catalogue
	registry  *Registry
	rewards   RewardService
	announcer *Announcer
	onOutcome func(Outcome)

	processed *processedSet
	queueSeq  atomic.Int64

	lock   sync.Mutex
	queues map[string]*rewardQueue
	closed bool

	wg sync.WaitGroup
}

type dispatchJob struct {
	ctx        context.Context
	redemption *Redemption
	redeem     Redeem
	handler    Handler
	resultCh   chan RedemptionResult
}

type rewardQueue struct {
	jobs chan dispatchJob
}

func NewDispatcher(logger *slog.Logger, catalogue *Catalogue, registry *Registry, rewards RewardService, announcer *Announcer, onOutcome func(Outcome)) *Dispatcher {
	if onOutcome == nil {
		onOutcome = func(Outcome) {}
	}

	return &Dispatcher{
		logger: logger,

		catalogue: catalogue,
		registry:  registry,
		rewards:   rewards,
		announcer: announcer,
		onOutcome: onOutcome,

		processed: newProcessedSet(0),
		queues:    map[string]*rewardQueue{},
	}
}

// Enqueue accepts a redemption and returns a channel that delivers its
// result once the handler finishes. Dedupe, matching and queue numbering
// happen synchronously in the caller's goroutine, so calling Enqueue from a
// single event-read loop preserves per-reward arrival order.
func (d *Dispatcher) Enqueue(ctx context.Context, r *Redemption) <-chan RedemptionResult {
	resultCh := make(chan RedemptionResult, 1)

	if !d.processed.Add(r.ID) {
		redemptionsTotal.WithLabelValues("duplicate").Inc()
		resultCh <- RedemptionResult{Success: true, Message: "already processed"}
		return resultCh
	}

	redeem, ok := d.match(r)
	if !ok {
		redemptionsTotal.WithLabelValues("unmatched").Inc()
		d.logger.Warn("redemption matches no known redeem", "reward_id", r.RewardID, "title", r.RewardTitle)
		resultCh <- RedemptionResult{
			Success: false,
			Message: fmt.Sprintf("no redeem registered for reward %q", r.RewardTitle),
		}
		return resultCh
	}

	handler, ok := d.registry.Get(redeem.LocalTitle)
	if !ok {
		redemptionsTotal.WithLabelValues("unmatched").Inc()
		resultCh <- RedemptionResult{
			Success: false,
			Message: fmt.Sprintf("no handler bound for redeem %q", redeem.LocalTitle),
		}
		return resultCh
	}

	if redeem.Queued {
		r.QueueNumber = d.queueSeq.Add(1)
	}

	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		// not processed, let a redelivery through after restart
		d.processed.Remove(r.ID)
		resultCh <- RedemptionResult{Success: false, Message: ErrShuttingDown.Error()}
		return resultCh
	}

	queue, exists := d.queues[redeem.LocalTitle]
	if !exists {
		queue = &rewardQueue{jobs: make(chan dispatchJob, rewardQueueLen)}
		d.queues[redeem.LocalTitle] = queue

		d.wg.Add(1)
		go d.drainQueue(queue)
	}
	d.lock.Unlock()

	select {
	case queue.jobs <- dispatchJob{
		ctx:        ctx,
		redemption: r,
		redeem:     redeem,
		handler:    handler,
		resultCh:   resultCh,
	}:
	default:
		redemptionsTotal.WithLabelValues("dropped").Inc()
		d.logger.Error("reward queue full, dropping redemption", "title", redeem.LocalTitle, "id", r.ID)
		resultCh <- RedemptionResult{
			Success: false,
			Message: fmt.Sprintf("queue for %q is full", redeem.LocalTitle),
		}
	}

	return resultCh
}

func (d *Dispatcher) match(r *Redemption) (Redeem, bool) {
	if redeem, ok := d.catalogue.GetByUpstreamID(r.RewardID); ok {
		return redeem, true
	}

	return d.catalogue.Get(r.RewardTitle)
}

func (d *Dispatcher) drainQueue(queue *rewardQueue) {
	defer d.wg.Done()

	for job := range queue.jobs {
		d.process(job)
	}
}

func (d *Dispatcher) process(job dispatchJob) {
	result := job.handler.Handle(job.ctx, job.redemption)

	if result.Success {
		redemptionsTotal.WithLabelValues("ok").Inc()
	} else {
		redemptionsTotal.WithLabelValues("failed").Inc()
		d.logger.Warn("redemption handler failed",
			"redeem", job.redeem.LocalTitle, "user", job.redemption.UserName, "msg", result.Message)
	}

	result.QueueNumber = job.redemption.QueueNumber

	verdict := d.settle(job, result)
	d.announce(job, result)

	d.onOutcome(Outcome{
		Redemption: *job.redemption,
		Result:     result,
		RedeemName: job.redeem.LocalTitle,
		ActionKind: job.redeem.ActionKind,
		Verdict:    verdict,
		FinishedAt: time.Now(),
	})

	job.resultCh <- result
}

// settle posts the fulfillment verdict upstream. Some redeems opt out of
// auto-finalizing: manual-completion and queued redeems wait for the
// operator, refunds cancel themselves inside the handler, and the coin game
// settles its own rounds.
func (d *Dispatcher) settle(job dispatchJob, result RedemptionResult) Status {
	if job.redeem.RequiresManualCompletion || job.redeem.Queued {
		return ""
	}
	if job.redeem.ActionKind == ActionRefund {
		return ""
	}
	if job.redeem.LocalTitle == CoinGameTitle {
		return ""
	}

	verdict := StatusFulfilled
	if !result.Success {
		verdict = StatusCanceled
	}

	if err := d.postVerdict(job.ctx, job.redemption, verdict); err != nil {
		d.logger.Error("failed to post redemption verdict",
			"redeem", job.redeem.LocalTitle, "id", job.redemption.ID, "verdict", verdict, "err", err)
		return ""
	}

	verdictsTotal.WithLabelValues(string(verdict)).Inc()

	return verdict
}

// postVerdict retries transient upstream failures with exponential backoff.
// Permanent failures and handler-side errors are not retried.
func (d *Dispatcher) postVerdict(ctx context.Context, r *Redemption, verdict Status) error {
	backoff := 200 * time.Millisecond

	var err error
	for attempt := 0; attempt < verdictMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = d.rewards.SetRedemptionStatus(ctx, r.RewardID, r.ID, verdict)
		if err == nil {
			return nil
		}
		if KindOf(err) != KindUpstreamTransient {
			return err
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", verdictMaxAttempts, err)
}

// announce publishes successful results only; failures are logged and
// refunded, never shown in chat.
func (d *Dispatcher) announce(job dispatchJob, result RedemptionResult) {
	if !job.redeem.AnnounceInChat || !result.Success {
		return
	}

	msg := result.Message
	if msg == "" && job.redeem.Queued {
		msg = fmt.Sprintf("you are #%d in the queue", result.QueueNumber)
	}
	if msg == "" {
		return
	}

	d.announcer.Announce(job.redemption.UserName, msg)
}

// Close stops accepting redemptions and drains the queues, waiting up to
// ctx's deadline for in-flight handlers.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.lock.Lock()
	if d.closed {
		d.lock.Unlock()
		return nil
	}
	d.closed = true
	for _, queue := range d.queues {
		close(queue.jobs)
	}
	d.lock.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain interrupted: %w", ctx.Err())
	}
}
