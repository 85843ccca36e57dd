package compiler

import (
	"context"
	"log/slog"
	"time"

	"github.com/tatolab/streamlib/internal/graph"
	"github.com/tatolab/streamlib/internal/processor"
)

// runSourceLoop is the loop-mode source thread described by the engine's
// scheduling model: maintain next_sync_ns, call Generate, sleep until
// next_sync_ns, snap forward on drift rather than bursting to catch up.
func runSourceLoop(ctx context.Context, log *slog.Logger, node *graph.Node, src processor.Source) {
	failures := processor.NewFailureTracker(3)
	failures.OnFailed = func() {
		node.State = processor.StateComponent{State: processor.StateFailed, Reason: "3 consecutive generate() failures"}
	}

	interval := time.Duration(src.ClockSyncPoint())
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	nextSyncNS := time.Now().UnixNano() + interval.Nanoseconds()

	defer func() {
		if r := recover(); r != nil {
			node.State = processor.StateComponent{State: processor.StateFailed, Reason: "panic in source loop"}
			log.Error("source loop panicked", slog.String("processor_id", string(node.ID)), slog.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-node.Wakeup.Done():
			return
		default:
		}

		genStart := time.Now()
		err := src.Generate(ctx)
		if node.Metrics != nil {
			node.Metrics.Latency.Record(time.Since(genStart).Nanoseconds())
		}
		if err != nil {
			log.Warn("generate failed, retrying next interval", slog.String("processor_id", string(node.ID)), slog.String("error", err.Error()))
			failures.RecordFailure()
			if node.Metrics != nil {
				node.Metrics.FramesDropped++
			}
			if failures.State() == processor.FailureFailed {
				return
			}
		} else {
			failures.RecordSuccess()
			if node.Metrics != nil {
				node.Metrics.FramesProduced++
			}
		}

		now := time.Now().UnixNano()
		if now-nextSyncNS > interval.Nanoseconds() {
			// Fallen more than one sync period behind: snap ahead instead
			// of bursting to catch up.
			nextSyncNS = now
		} else {
			nextSyncNS += interval.Nanoseconds()
		}

		sleep := time.Duration(nextSyncNS - time.Now().UnixNano())
		if sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-node.Wakeup.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// runHandlerLoop is the reactive handler thread shared by transforms and
// reactive sinks: block on the wakeup channel, invoke fn once per wakeup.
// Three consecutive errors from fn escalate the processor to Failed, the
// same threshold runSourceLoop applies to generate() failures.
func runHandlerLoop(ctx context.Context, log *slog.Logger, node *graph.Node, fn func(context.Context) error) {
	failures := processor.NewFailureTracker(3)
	failures.OnFailed = func() {
		node.State = processor.StateComponent{State: processor.StateFailed, Reason: "3 consecutive handler failures"}
	}

	defer func() {
		if r := recover(); r != nil {
			node.State = processor.StateComponent{State: processor.StateFailed, Reason: "panic in handler loop"}
			log.Error("handler loop panicked", slog.String("processor_id", string(node.ID)), slog.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-node.Wakeup.Done():
			return
		case <-node.Wakeup.Data():
			start := time.Now()
			err := fn(ctx)
			if node.Metrics != nil {
				node.Metrics.Latency.Record(time.Since(start).Nanoseconds())
			}
			if err != nil {
				log.Warn("handler invocation failed", slog.String("processor_id", string(node.ID)), slog.String("error", err.Error()))
				failures.RecordFailure()
				if node.Metrics != nil {
					node.Metrics.FramesDropped++
				}
				if failures.State() == processor.FailureFailed {
					return
				}
			} else {
				failures.RecordSuccess()
				if node.Metrics != nil {
					node.Metrics.FramesProduced++
				}
			}
		}
	}
}
