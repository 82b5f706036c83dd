// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package burner

import (
	"context"
	"testing"
	"time"
)

// TestCalibrate validates that Calibrate returns a positive throughput
// estimate on any machine capable of running the test suite.
func TestCalibrate(t *testing.T) {
	rate := Calibrate()
	if rate == 0 {
		t.Fatal("Calibrate() = 0, want > 0")
	}
}

// TestBurn_Duration validates that Burn returns close to the requested
// duration rather than immediately or unboundedly.
func TestBurn_Duration(t *testing.T) {
	const want = 20 * time.Millisecond
	start := time.Now()
	Burn(context.Background(), want, 0)
	elapsed := time.Since(start)

	if elapsed < want {
		t.Fatalf("Burn returned after %v, want >= %v", elapsed, want)
	}
	// Generous upper bound: scheduling jitter under test-runner load should
	// never approach 5x the requested duration.
	if elapsed > 5*want {
		t.Fatalf("Burn returned after %v, want < %v", elapsed, 5*want)
	}
}

// TestBurn_ContextCancel validates that a canceled context unblocks Burn
// before its full duration elapses, the mechanism the KILL policy's
// cooperative cancellation depends on.
func TestBurn_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	Burn(ctx, time.Second, 0)
	elapsed := time.Since(start)

	if elapsed > 200*time.Millisecond {
		t.Fatalf("Burn did not observe cancellation promptly: elapsed %v", elapsed)
	}
}
