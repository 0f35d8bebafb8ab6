package idgen

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedClock returns readings in order and repeats the last one forever.
type scriptedClock struct {
	mu       sync.Mutex
	readings []int64
	calls    int
}

func (c *scriptedClock) NowMillis() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.readings) {
		i = len(c.readings) - 1
	}
	c.calls++
	return c.readings[i]
}

// frozenClock returns base for the first n calls and base+1 afterwards.
type frozenClock struct {
	base  int64
	n     int
	calls int
}

func (c *frozenClock) NowMillis() int64 {
	c.calls++
	if c.calls <= c.n {
		return c.base
	}
	return c.base + 1
}

func newTestSnowflake(t *testing.T, node int64, clock Clock) *Snowflake {
	t.Helper()
	cfg := DefaultSnowflakeConfig()
	cfg.NodeID = node
	cfg.Clock = clock
	sf, err := NewSnowflake(cfg)
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}
	return sf
}

// --- Config Tests ---

func TestNewSnowflake_InvalidNodeID(t *testing.T) {
	for _, node := range []int64{-1, MaxNodeID + 1, 5000} {
		cfg := DefaultSnowflakeConfig()
		cfg.NodeID = node
		if _, err := NewSnowflake(cfg); !errors.Is(err, ErrInvalidNodeID) {
			t.Errorf("node %d: expected ErrInvalidNodeID, got %v", node, err)
		}
	}
}

func TestNewSnowflake_BoundaryNodeIDs(t *testing.T) {
	for _, node := range []int64{0, MaxNodeID} {
		cfg := DefaultSnowflakeConfig()
		cfg.NodeID = node
		sf, err := NewSnowflake(cfg)
		if err != nil {
			t.Fatalf("node %d: unexpected error %v", node, err)
		}
		if sf.NodeID() != node {
			t.Errorf("expected node %d, got %d", node, sf.NodeID())
		}
	}
}

func TestSnowflakeConfig_ValidateDefaults(t *testing.T) {
	cfg := SnowflakeConfig{MaxClockRollback: -time.Second}
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Epoch.Equal(DefaultEpoch) {
		t.Errorf("expected default epoch, got %v", cfg.Epoch)
	}
	if cfg.MaxClockRollback != 0 {
		t.Errorf("expected negative tolerance clamped to 0, got %v", cfg.MaxClockRollback)
	}
	if _, ok := cfg.Clock.(SystemClock); !ok {
		t.Errorf("expected SystemClock, got %T", cfg.Clock)
	}
}

// --- Layout Tests ---

func TestNextID_Layout(t *testing.T) {
	epoch := DefaultEpoch.UnixMilli()
	sf := newTestSnowflake(t, 7, ClockFunc(func() int64 { return epoch + 5 }))

	id, err := sf.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	expected := int64(5)<<22 | int64(7)<<12
	if id != expected {
		t.Errorf("expected %d, got %d", expected, id)
	}

	id2, _ := sf.NextID()
	if id2 != expected+1 {
		t.Errorf("expected sequence increment to %d, got %d", expected+1, id2)
	}
}

func TestDecompose(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sf := newTestSnowflake(t, 513, ClockFunc(func() int64 { return now.UnixMilli() }))

	id, err := sf.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	ts, node, seq := sf.Decompose(id)
	if !ts.Equal(now) {
		t.Errorf("expected time %v, got %v", now, ts)
	}
	if node != 513 {
		t.Errorf("expected node 513, got %d", node)
	}
	if seq != 0 {
		t.Errorf("expected sequence 0, got %d", seq)
	}
}

// --- Ordering Tests ---

func TestNextID_MonotonicSequential(t *testing.T) {
	sf := newTestSnowflake(t, 1, SystemClock{})

	prev := int64(-1)
	for i := 0; i < 20000; i++ {
		id, err := sf.NextID()
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d at call %d", id, prev, i)
		}
		prev = id
	}
}

func TestNextID_UniqueConcurrent(t *testing.T) {
	sf := newTestSnowflake(t, 3, SystemClock{})

	const workers = 8
	const perWorker = 5000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			prev := int64(-1)
			for i := 0; i < perWorker; i++ {
				id, err := sf.NextID()
				if err != nil {
					errs <- err
					return
				}
				if id <= prev {
					errs <- errors.New("ids observed out of order within one goroutine")
					return
				}
				prev = id
				local = append(local, id)
			}
			mu.Lock()
			for _, id := range local {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("worker failed: %v", err)
	}
	if len(seen) != workers*perWorker {
		t.Errorf("expected %d distinct ids, got %d", workers*perWorker, len(seen))
	}
}

func TestNextID_CrossNodeDisjoint(t *testing.T) {
	epoch := DefaultEpoch.UnixMilli()
	clock := ClockFunc(func() int64 { return epoch + 1000 })
	a := newTestSnowflake(t, 1, &frozenClock{base: epoch + 1000, n: 1 << 30})
	b := newTestSnowflake(t, 2, clock)

	seen := make(map[int64]int64)
	for i := 0; i < 4000; i++ {
		for _, sf := range []*Snowflake{a, b} {
			id, err := sf.NextID()
			if err != nil {
				t.Fatalf("NextID: %v", err)
			}
			if owner, dup := seen[id]; dup {
				t.Fatalf("id %d produced by nodes %d and %d", id, owner, sf.NodeID())
			}
			seen[id] = sf.NodeID()
			if _, node, _ := Parts(id); node != sf.NodeID() {
				t.Errorf("expected node %d in id, got %d", sf.NodeID(), node)
			}
		}
	}
}

// --- Sequence Exhaustion Tests ---

func TestNextID_SequenceExhaustionWaitsForNextMillisecond(t *testing.T) {
	base := DefaultEpoch.UnixMilli() + 42
	// one clock read per call for 4097 calls, the overflow wait sees base+1
	clock := &frozenClock{base: base, n: maxSequence + 2}
	sf := newTestSnowflake(t, 9, clock)

	var last int64
	for i := 0; i <= maxSequence; i++ {
		id, err := sf.NextID()
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if _, _, seq := Parts(id); seq != int64(i) {
			t.Fatalf("expected sequence %d, got %d", i, seq)
		}
		last = id
	}

	id, err := sf.NextID()
	if err != nil {
		t.Fatalf("NextID after exhaustion: %v", err)
	}
	elapsed, _, seq := Parts(id)
	if elapsed != 43 {
		t.Errorf("expected elapsed 43 after waiting, got %d", elapsed)
	}
	if seq != 0 {
		t.Errorf("expected sequence reset to 0, got %d", seq)
	}
	if id <= last {
		t.Errorf("expected id %d greater than %d", id, last)
	}
}

// --- Clock Rollback Tests ---

func TestNextID_SmallRollbackWaits(t *testing.T) {
	base := DefaultEpoch.UnixMilli() + 1000
	clock := &scriptedClock{readings: []int64{base + 10, base + 8, base + 10}}
	sf := newTestSnowflake(t, 0, clock)

	first, err := sf.NextID()
	if err != nil {
		t.Fatalf("first NextID: %v", err)
	}
	second, err := sf.NextID()
	if err != nil {
		t.Fatalf("expected rollback within tolerance to be absorbed, got %v", err)
	}
	if second <= first {
		t.Errorf("expected %d > %d", second, first)
	}
	if _, _, seq := Parts(second); seq != 1 {
		t.Errorf("expected sequence 1 in the recovered millisecond, got %d", seq)
	}
}

func TestNextID_LargeRollbackFails(t *testing.T) {
	base := DefaultEpoch.UnixMilli() + 1000
	clock := &scriptedClock{readings: []int64{base + 100, base + 50, base + 101}}
	sf := newTestSnowflake(t, 0, clock)

	first, err := sf.NextID()
	if err != nil {
		t.Fatalf("first NextID: %v", err)
	}

	_, err = sf.NextID()
	if !errors.Is(err, ErrClockRollback) {
		t.Fatalf("expected ErrClockRollback, got %v", err)
	}
	var rollback *ClockRollbackError
	if !errors.As(err, &rollback) {
		t.Fatalf("expected *ClockRollbackError, got %T", err)
	}
	if rollback.Last != base+100 || rollback.Now != base+50 {
		t.Errorf("expected last=%d now=%d, got last=%d now=%d", base+100, base+50, rollback.Last, rollback.Now)
	}

	// recovers once the clock is ahead again
	third, err := sf.NextID()
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if third <= first {
		t.Errorf("expected %d > %d", third, first)
	}
}

func TestNextID_ClockBeforeEpoch(t *testing.T) {
	sf := newTestSnowflake(t, 0, ClockFunc(func() int64 { return DefaultEpoch.UnixMilli() - 1 }))
	if _, err := sf.NextID(); !errors.Is(err, ErrClockBeforeEpoch) {
		t.Errorf("expected ErrClockBeforeEpoch, got %v", err)
	}
}

func TestClockRollbackError_Message(t *testing.T) {
	err := &ClockRollbackError{Last: 110, Now: 100}
	expected := "idgen: clock moved backwards by 10ms (last=110 now=100)"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}
