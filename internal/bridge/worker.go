// Package bridge implements the stateful drain worker: it leases a batch
// from the intake queue, resolves per-pool config, runs the optional
// validate step and the pluggable commit step, marks the matching slot
// consumed, and acks. See spec.md §4.4 / SPEC_FULL.md §4.4 for the full
// contract this mirrors step for step.
package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/ocx/ledger-intake/internal/intakequeue"
	"github.com/ocx/ledger-intake/internal/ledgerclient"
	"github.com/ocx/ledger-intake/internal/metrics"
	"github.com/ocx/ledger-intake/internal/poolconfig"
	"github.com/ocx/ledger-intake/internal/realtime"
	"github.com/ocx/ledger-intake/internal/slotstore"
	"github.com/ocx/ledger-intake/internal/validator"
)

// Fallback constants used only to bootstrap the very first queue.Read call
// of an invocation; per-message behavior after that uses the resolved
// per-pool config.
const (
	fallbackVisibilityTimeout = 45 * time.Second
	fallbackBatchSize         = 100
)

// Summary is the structured result of one DrainOnce invocation.
type Summary struct {
	Processed int
	DLQ       int
	Total     int
}

// Worker composes every dependency the drain loop touches.
type Worker struct {
	Queue     intakequeue.Queue
	Slots     slotstore.Store
	Configs   poolconfig.Store
	Validator *validator.Client
	Ledger    *ledgerclient.Client
	Events    realtime.Publisher
	WallClock time.Duration
}

func New(queue intakequeue.Queue, slots slotstore.Store, configs poolconfig.Store,
	val *validator.Client, ledger *ledgerclient.Client, events realtime.Publisher, wallClock time.Duration) *Worker {
	return &Worker{
		Queue:     queue,
		Slots:     slots,
		Configs:   configs,
		Validator: val,
		Ledger:    ledger,
		Events:    events,
		WallClock: wallClock,
	}
}

// DrainOnce runs one batch-drain invocation. Safe to call concurrently
// with itself: two invocations lease disjoint batches because Read uses
// skip-locked selection.
func (w *Worker) DrainOnce(ctx context.Context) (Summary, error) {
	drainCtx, cancel := context.WithTimeout(ctx, w.WallClock)
	defer cancel()

	batch, err := w.Queue.Read(drainCtx, fallbackBatchSize, fallbackVisibilityTimeout)
	if err != nil {
		return Summary{}, err
	}
	if len(batch) == 0 {
		return Summary{}, nil
	}

	configSeen := make(map[string]poolconfig.Config)
	var ackList []int64
	summary := Summary{Total: len(batch)}

	for _, envelope := range batch {
		if drainCtx.Err() != nil {
			// Wall-clock expired: stop issuing new per-message work and
			// fall through to ack whatever was acknowledged so far.
			break
		}

		acked := w.processOne(drainCtx, envelope, configSeen, &summary)
		if acked {
			ackList = append(ackList, envelope.MsgID)
		}
	}

	// The ack runs on the caller's ctx, not drainCtx, so it is still
	// attempted after the wall clock has expired.
	if len(ackList) > 0 {
		for _, id := range ackList {
			if err := w.Queue.Delete(ctx, id); err != nil {
				slog.Error("bridge: ack delete failed, message will redeliver", "msg_id", id, "error", err)
			}
		}
	}

	return summary, nil
}

// processOne runs steps 2.a-2.g for a single envelope. Returns true if the
// message should be added to the ack list.
func (w *Worker) processOne(ctx context.Context, envelope intakequeue.Envelope, configSeen map[string]poolconfig.Config, summary *Summary) bool {
	payload := envelope.Payload
	poolID := payload.PoolID

	if payload.ResourceID == "" {
		w.moveToDLQ(ctx, envelope.MsgID, poolID, "malformed payload: missing resource_id")
		summary.DLQ++
		return false
	}

	cfg, ok := configSeen[poolID]
	if !ok {
		loaded, err := w.Configs.Get(ctx, poolID)
		if err != nil {
			w.moveToDLQ(ctx, envelope.MsgID, poolID, "pool config unavailable")
			summary.DLQ++
			return false
		}
		cfg = loaded
		configSeen[poolID] = cfg
	}

	if !cfg.IsActive {
		w.moveToDLQ(ctx, envelope.MsgID, poolID, "pool inactive")
		summary.DLQ++
		return false
	}

	if envelope.ReadCount > cfg.MaxRetries {
		w.moveToDLQ(ctx, envelope.MsgID, poolID, "retry budget exhausted")
		summary.DLQ++
		return false
	}

	state := payload.State

	if state == intakequeue.Queued {
		timer := prometheusTimer("validate")
		outcome := w.validate(ctx, cfg, payload)
		timer()
		if outcome != validator.OutcomeOK && cfg.ValidationWebhookURL != nil {
			// Transient: leave un-acked, will redeliver after lease expiry.
			metrics.DrainTransientSkipTotal.WithLabelValues(poolID).Inc()
			return false
		}
		state = intakequeue.Validated
	}

	if state == intakequeue.Validated || state == intakequeue.Committed {
		timer := prometheusTimer("commit")
		ok := w.commit(ctx, cfg, payload)
		timer()
		if !ok {
			metrics.DrainTransientSkipTotal.WithLabelValues(poolID).Inc()
			return false
		}
		state = intakequeue.Committed
	}

	// Mark consumed: conditional update, not finding a RESERVED row is
	// not an error (a concurrent Reaper or prior attempt already handled
	// it — the ledger write above is authoritative).
	if err := w.Slots.MarkConsumed(ctx, payload.ResourceID); err != nil {
		slog.Warn("bridge: mark_consumed no-op or failed, ledger is authoritative", "resource_id", payload.ResourceID, "error", err)
	}

	if w.Events != nil {
		w.Events.PublishCommitted(ctx, realtime.CommittedEvent{
			PoolID:     poolID,
			ResourceID: payload.ResourceID,
			UserID:     payload.UserID,
			At:         time.Now(),
		})
	}

	metrics.DrainProcessedTotal.WithLabelValues(poolID).Inc()
	summary.Processed++
	return true
}

func (w *Worker) validate(ctx context.Context, cfg poolconfig.Config, payload intakequeue.Payload) validator.Outcome {
	if cfg.ValidationWebhookURL == nil {
		// Vacuously validated.
		return validator.OutcomeOK
	}
	_, outcome, err := w.Validator.Call(ctx, *cfg.ValidationWebhookURL, payload.ResourceID, validator.Request{
		PoolID:     payload.PoolID,
		ResourceID: payload.ResourceID,
		UserID:     payload.UserID,
	})
	if err != nil {
		slog.Debug("bridge: validate transient failure", "resource_id", payload.ResourceID, "error", err)
	}
	return outcome
}

func (w *Worker) commit(ctx context.Context, cfg poolconfig.Config, payload intakequeue.Payload) bool {
	if cfg.CommitWebhookURL != nil {
		_, outcome, err := w.Validator.Call(ctx, *cfg.CommitWebhookURL, payload.ResourceID, validator.Request{
			PoolID:     payload.PoolID,
			ResourceID: payload.ResourceID,
			UserID:     payload.UserID,
		})
		if err != nil {
			slog.Debug("bridge: commit webhook transient failure", "resource_id", payload.ResourceID, "error", err)
		}
		return outcome == validator.OutcomeOK
	}

	_, err := w.Ledger.Commit(ctx, cfg.CommitRPCName, payload.PoolID, payload.ResourceID, payload.UserID)
	if err != nil {
		slog.Debug("bridge: commit rpc transient failure", "resource_id", payload.ResourceID, "error", err)
		return false
	}
	return true
}

func (w *Worker) moveToDLQ(ctx context.Context, msgID int64, poolID, reason string) {
	if err := w.Queue.MoveToDLQ(ctx, msgID, reason); err != nil {
		slog.Error("bridge: move to dlq failed", "msg_id", msgID, "error", err)
		return
	}
	metrics.DrainDLQTotal.WithLabelValues(poolID, reason).Inc()
}

func prometheusTimer(step string) func() {
	start := time.Now()
	return func() {
		metrics.DrainStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	}
}
