package backend

import (
	"context"
	"time"
)

// RetryPolicy spaces out attempts to reopen a failed listener.
type RetryPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

var DefaultRetry = RetryPolicy{Initial: time.Second, Max: 30 * time.Second}

func (p RetryPolicy) next(delay time.Duration) time.Duration {
	if delay <= 0 {
		if p.Initial > 0 {
			return p.Initial
		}
		return DefaultRetry.Initial
	}
	delay *= 2
	if p.Max > 0 && delay > p.Max {
		return p.Max
	}
	return delay
}

// Supervise blocks until sub ends. A stopped listener (nil Err) or a done ctx
// returns quietly. A listener that failed is reported to onFail, then reopen
// is retried with growing delays until it returns nil or ctx is done.
// reopen returns nil both when it reopened and when the listener is no longer
// wanted.
func Supervise(ctx context.Context, sub Subscription, policy RetryPolicy, onFail func(error), reopen func() error) {
	select {
	case <-ctx.Done():
		return
	case <-sub.Done():
	}
	err := sub.Err()
	if err == nil || ctx.Err() != nil {
		return
	}
	if onFail != nil {
		onFail(err)
	}

	var delay time.Duration
	for {
		delay = policy.next(delay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		err := reopen()
		if err == nil {
			return
		}
		if onFail != nil {
			onFail(err)
		}
	}
}
