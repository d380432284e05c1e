// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

package ratex

import (
	"context"
	"testing"
	"time"
)

func TestBackoffDoublesUpToCap(t *testing.T) {
	b := &Backoff{Base: time.Millisecond, Cap: 4 * time.Millisecond}
	ctx := context.Background()
	want := []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond, // capped
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Fatalf("Next() before wait %d = %v, want %v", i, got, w)
		}
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	b.Reset()
	if got := b.Next(); got != time.Millisecond {
		t.Fatalf("Next() after Reset = %v, want %v", got, time.Millisecond)
	}
}

func TestBackoffWaitHonorsContext(t *testing.T) {
	b := &Backoff{Base: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := b.Wait(ctx); err != context.Canceled {
		t.Fatalf("Wait on canceled ctx = %v, want context.Canceled", err)
	}
}

func TestBackoffZeroValueDefaults(t *testing.T) {
	b := &Backoff{}
	if got := b.Next(); got != defaultBase {
		t.Fatalf("zero-value Next() = %v, want %v", got, defaultBase)
	}
}
