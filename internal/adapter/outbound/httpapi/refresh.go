package httpapi

import "sync"

// RefreshOutcome is the result of a refresh or reauthentication attempt.
// Exactly one of Token and Err is set.
type RefreshOutcome struct {
	Token string
	Err   error
}

// RefreshCoordinator guarantees that at most one refresh attempt is underway
// at a time. Requests that hit a 401 while an attempt is running wait for its
// outcome instead of starting their own; waiters are settled exactly once,
// in the order they enqueued.
//
// Each concluded attempt advances an epoch. A request that was sent before
// the latest attempt concluded and then receives a 401 reuses that attempt's
// outcome rather than triggering another one.
type RefreshCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	queue    []chan RefreshOutcome
	epoch    uint64
	last     RefreshOutcome
}

// NewRefreshCoordinator returns an idle coordinator.
func NewRefreshCoordinator() *RefreshCoordinator {
	return &RefreshCoordinator{}
}

// Begin marks an attempt as underway. It returns false if one already is.
func (c *RefreshCoordinator) Begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return false
	}
	c.inFlight = true
	return true
}

// InFlight reports whether an attempt is underway.
func (c *RefreshCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Enqueue registers a waiter for the running attempt. ok is false when no
// attempt is underway; the caller should then Begin one itself.
func (c *RefreshCoordinator) Enqueue() (wait <-chan RefreshOutcome, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight {
		return nil, false
	}
	return c.enqueueLocked(), true
}

func (c *RefreshCoordinator) enqueueLocked() chan RefreshOutcome {
	ch := make(chan RefreshOutcome, 1)
	c.queue = append(c.queue, ch)
	return ch
}

// Epoch returns the number of concluded attempts. Record it before sending a
// request and pass it to Join if the request receives a 401.
func (c *RefreshCoordinator) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Join decides, atomically, how a request that received a 401 proceeds.
// seen is the Epoch observed before the request was sent.
//
//   - If an attempt concluded since then, wait delivers its outcome at once.
//   - If an attempt is underway, the caller is queued behind it.
//   - Otherwise the caller becomes the leader: leader is true, wait is nil,
//     and the caller must run the attempt and call SettleAll.
func (c *RefreshCoordinator) Join(seen uint64) (leader bool, wait <-chan RefreshOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != seen {
		ch := make(chan RefreshOutcome, 1)
		ch <- c.last
		return false, ch
	}
	if c.inFlight {
		return false, c.enqueueLocked()
	}
	c.inFlight = true
	return true, nil
}

// SettleAll concludes the running attempt: it records the outcome, clears
// the in-flight flag, empties the queue and delivers the outcome to every
// waiter in enqueue order. It returns the number of waiters settled.
func (c *RefreshCoordinator) SettleAll(out RefreshOutcome) int {
	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.inFlight = false
	c.epoch++
	c.last = out
	c.mu.Unlock()

	for _, ch := range queue {
		ch <- out
	}
	return len(queue)
}
