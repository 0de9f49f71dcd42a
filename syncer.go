package sectionflow

import (
	"context"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/drillsoft/sectionflow/internal/metrics"
)

// syncForever drains the outbox until the context is cancelled, backing off after
// errors so a dead remote does not spin the loop.
func (e *Engine) syncForever(ctx context.Context) {
	for {
		err := e.syncOnce(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		} else if err != nil {
			e.logger.Error(ctx, errors.Wrap(err, "outbox sync"))

			err = wait(ctx, e.syncOpts.errBackOff)
			if err != nil {
				return
			}
		}
	}
}

// syncOnce pushes pending outbox events to the remote system oldest first, deleting
// each event only once the remote accepted it. A push failure stops the pass so that
// per-entity ordering is preserved and the whole batch is retried after back off.
func (e *Engine) syncOnce(ctx context.Context) error {
	events, err := e.cache.ListOutboxEvents(ctx, e.syncOpts.limit)
	if err != nil {
		return err
	}

	for _, ev := range events {
		rt, ok := e.byTable[ev.Table]
		if !ok {
			// A table no longer registered cannot be synced; drop the event rather
			// than wedge the queue behind it.
			e.logger.Error(ctx, errors.Wrap(ErrUnknownCacheTable, "dropping outbox event", j.MKV{
				"table":    ev.Table,
				"event_id": ev.ID,
			}))

			err = e.cache.DeleteOutboxEvent(ctx, ev.ID)
			if err != nil {
				return err
			}

			continue
		}

		t0 := e.clock.Now()

		err = rt.svc.pushRemote(ctx, ev)
		if err != nil {
			metrics.SyncErrors.WithLabelValues(ev.Table).Inc()
			return errors.Wrap(err, "pushing outbox event", j.MKV{
				"table":     ev.Table,
				"entity_id": ev.EntityID,
			})
		}

		err = e.cache.DeleteOutboxEvent(ctx, ev.ID)
		if err != nil {
			return err
		}

		metrics.SyncLatency.WithLabelValues(ev.Table).Observe(e.clock.Since(t0).Seconds())

		if e.notifier != nil {
			nerr := e.notifier.Notify(ctx, ChangeEvent{
				Table:       ev.Table,
				EntityID:    ev.EntityID,
				DrillPlanID: ev.DrillPlanID,
				RowStatus:   ev.RowStatus,
				OccurredAt:  e.clock.Now(),
			})
			if nerr != nil {
				e.logger.Error(ctx, errors.Wrap(nerr, "notifying change", j.MKV{
					"table":     ev.Table,
					"entity_id": ev.EntityID,
				}))
			}
		}
	}

	return wait(ctx, e.syncOpts.pollingFrequency)
}

// refreshForever re-lists every open drill plan's sections from the remote system on
// the configured cron schedule, keeping long-lived caches from drifting.
func (e *Engine) refreshForever(ctx context.Context) {
	for {
		next := e.refreshSchedule.Next(e.clock.Now())

		err := waitUntil(ctx, e.clock, next)
		if err != nil {
			return
		}

		for _, planID := range e.openPlanIDs() {
			for _, key := range e.order {
				rt := e.sections[key]

				err = rt.svc.refresh(ctx, planID)
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				} else if err != nil {
					e.logger.Error(ctx, errors.Wrap(err, "scheduled refresh", j.MKV{
						"table":         rt.table,
						"drill_plan_id": planID,
					}))
				}
			}

			if e.summarySvc != nil {
				err = e.summarySvc.Refresh(ctx, planID)
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					e.logger.Error(ctx, errors.Wrap(err, "scheduled summary refresh", j.MKV{
						"drill_plan_id": planID,
					}))
				}
			}
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d == 0 {
		return nil
	}

	t := time.NewTimer(d)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func waitUntil(ctx context.Context, c clock.Clock, until time.Time) error {
	diff := until.Sub(c.Now())
	if diff <= 0 {
		return nil
	}

	t := c.NewTimer(diff)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
