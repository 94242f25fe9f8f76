package httpapi

import (
	"errors"
	"testing"
)

func TestRefreshCoordinator_BeginIsExclusive(t *testing.T) {
	c := NewRefreshCoordinator()

	if !c.Begin() {
		t.Fatal("first Begin() should succeed")
	}
	if c.Begin() {
		t.Fatal("second Begin() should fail while an attempt is in flight")
	}
	if !c.InFlight() {
		t.Error("InFlight() = false during attempt")
	}

	c.SettleAll(RefreshOutcome{Token: "t"})

	if c.InFlight() {
		t.Error("InFlight() = true after SettleAll")
	}
	if !c.Begin() {
		t.Error("Begin() should succeed after SettleAll")
	}
}

func TestRefreshCoordinator_EnqueueWithoutAttempt(t *testing.T) {
	c := NewRefreshCoordinator()

	if _, ok := c.Enqueue(); ok {
		t.Error("Enqueue() should fail when no attempt is in flight")
	}
}

func TestRefreshCoordinator_SettleAllInOrder(t *testing.T) {
	c := NewRefreshCoordinator()
	c.Begin()

	var waits []<-chan RefreshOutcome
	for i := 0; i < 5; i++ {
		w, ok := c.Enqueue()
		if !ok {
			t.Fatalf("Enqueue() #%d failed", i)
		}
		waits = append(waits, w)
	}

	if n := c.SettleAll(RefreshOutcome{Token: "fresh"}); n != 5 {
		t.Errorf("SettleAll() = %d, want 5", n)
	}
	for i, w := range waits {
		select {
		case out := <-w:
			if out.Token != "fresh" || out.Err != nil {
				t.Errorf("waiter %d got %+v", i, out)
			}
		default:
			t.Errorf("waiter %d not settled", i)
		}
	}

	// Queue is emptied; a second settle reaches nobody.
	c.Begin()
	if n := c.SettleAll(RefreshOutcome{Token: "again"}); n != 0 {
		t.Errorf("second SettleAll() = %d, want 0", n)
	}
}

func TestRefreshCoordinator_JoinLeaderAndFollowers(t *testing.T) {
	c := NewRefreshCoordinator()
	seen := c.Epoch()

	leader, wait := c.Join(seen)
	if !leader || wait != nil {
		t.Fatalf("first Join() = (%v, %v), want leader", leader, wait)
	}

	leader, wait = c.Join(seen)
	if leader {
		t.Fatal("second Join() during attempt must not lead")
	}

	c.SettleAll(RefreshOutcome{Token: "fresh"})
	if out := <-wait; out.Token != "fresh" {
		t.Errorf("follower got %+v", out)
	}
	if c.Epoch() != seen+1 {
		t.Errorf("Epoch() = %d, want %d", c.Epoch(), seen+1)
	}
}

func TestRefreshCoordinator_JoinAfterConcludedAttemptReusesOutcome(t *testing.T) {
	c := NewRefreshCoordinator()
	seen := c.Epoch()

	c.Join(seen)
	failure := errors.New("refresh rejected")
	c.SettleAll(RefreshOutcome{Err: failure})

	// A request sent before the attempt concluded gets its outcome without
	// starting a new attempt.
	leader, wait := c.Join(seen)
	if leader {
		t.Fatal("stale Join() must not start a new attempt")
	}
	if out := <-wait; !errors.Is(out.Err, failure) {
		t.Errorf("stale Join() outcome = %+v, want refresh failure", out)
	}
	if c.InFlight() {
		t.Error("stale Join() left an attempt in flight")
	}

	// A request sent after it starts a new episode.
	leader, _ = c.Join(c.Epoch())
	if !leader {
		t.Error("Join() with current epoch should lead a new attempt")
	}
}
