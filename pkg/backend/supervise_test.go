package backend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type endingSub struct {
	done chan struct{}
	err  error
}

func newEndingSub(err error) *endingSub {
	sub := &endingSub{done: make(chan struct{}), err: err}
	close(sub.done)
	return sub
}

func (s *endingSub) Stop()                 {}
func (s *endingSub) Done() <-chan struct{} { return s.done }
func (s *endingSub) Err() error            { return s.err }

var fastRetry = RetryPolicy{Initial: time.Millisecond, Max: 4 * time.Millisecond}

func TestSuperviseIgnoresStoppedListener(t *testing.T) {
	reopened := false
	Supervise(context.Background(), newEndingSub(nil), fastRetry, nil, func() error {
		reopened = true
		return nil
	})
	if reopened {
		t.Fatal("stopped listener must not be reopened")
	}
}

func TestSuperviseRetriesUntilReopened(t *testing.T) {
	var mu sync.Mutex
	var failures []error
	attempts := 0

	Supervise(context.Background(), newEndingSub(errors.New("stream reset")), fastRetry,
		func(err error) {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
		},
		func() error {
			attempts++
			if attempts < 3 {
				return errors.New("still offline")
			}
			return nil
		})

	if attempts != 3 {
		t.Fatalf("expected 3 reopen attempts, got %d", attempts)
	}
	if len(failures) != 3 {
		t.Fatalf("expected the end plus 2 failed reopens reported, got %v", failures)
	}
}

func TestSuperviseStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		Supervise(ctx, newEndingSub(errors.New("stream reset")), RetryPolicy{Initial: time.Hour}, nil, func() error {
			t.Error("reopen must not run after cancel")
			return nil
		})
	}()

	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not return after cancel")
	}
}

func TestRetryPolicyBacksOff(t *testing.T) {
	policy := RetryPolicy{Initial: time.Second, Max: 3 * time.Second}
	delay := policy.next(0)
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if delay != w {
			t.Fatalf("step %d: expected %v, got %v", i, w, delay)
		}
		delay = policy.next(delay)
	}
}
