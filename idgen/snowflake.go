package idgen

import (
	"errors"
	"runtime"
	"sync"
	"time"
)

const (
	timestampBits = 41
	nodeBits      = 10
	sequenceBits  = 12

	// MaxNodeID is the largest node id a Snowflake accepts.
	MaxNodeID = 1<<nodeBits - 1

	maxSequence    = 1<<sequenceBits - 1
	maxElapsed     = 1<<timestampBits - 1
	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
)

// DefaultEpoch is the classic snowflake epoch (2010-11-04T01:42:54.657Z).
var DefaultEpoch = time.UnixMilli(1288834974657).UTC()

// ErrEpochExhausted is returned once the 41-bit timestamp field can no longer hold
// the time elapsed since the epoch.
var ErrEpochExhausted = errors.New("idgen: timestamp exceeds 41 bits since epoch")

// Clock supplies the current time in unix milliseconds.
type Clock interface {
	NowMillis() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

// NowMillis calls f.
func (f ClockFunc) NowMillis() int64 { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// NowMillis returns time.Now in unix milliseconds.
func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// SnowflakeConfig holds configuration for a Snowflake.
type SnowflakeConfig struct {
	// NodeID identifies this generator instance. It must be unique among
	// concurrently running instances.
	// Range: 0..1023
	NodeID int64

	// Epoch is the zero point of the timestamp field.
	// Default: DefaultEpoch
	Epoch time.Time

	// MaxClockRollback is the largest backward clock jump that is absorbed by
	// waiting. Anything larger fails with ClockRollbackError.
	// Default: 5ms
	MaxClockRollback time.Duration

	// Clock is the time source.
	// Default: SystemClock
	Clock Clock
}

// DefaultSnowflakeConfig returns a config for node 0 on the system clock.
func DefaultSnowflakeConfig() SnowflakeConfig {
	return SnowflakeConfig{
		NodeID:           0,
		Epoch:            DefaultEpoch,
		MaxClockRollback: 5 * time.Millisecond,
		Clock:            SystemClock{},
	}
}

// validate fills defaults and checks the node id range.
func (c *SnowflakeConfig) validate() error {
	if c.NodeID < 0 || c.NodeID > MaxNodeID {
		return ErrInvalidNodeID
	}
	if c.Epoch.IsZero() {
		c.Epoch = DefaultEpoch
	}
	if c.MaxClockRollback < 0 {
		c.MaxClockRollback = 0
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return nil
}

// Snowflake generates time-ordered 64-bit ids. It is safe for concurrent use.
type Snowflake struct {
	clock       Clock
	epoch       int64
	node        int64
	maxRollback int64

	mu       sync.Mutex
	last     int64
	sequence int64
}

// NewSnowflake creates a generator from config.
func NewSnowflake(config SnowflakeConfig) (*Snowflake, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Snowflake{
		clock:       config.Clock,
		epoch:       config.Epoch.UnixMilli(),
		node:        config.NodeID,
		maxRollback: config.MaxClockRollback.Milliseconds(),
	}, nil
}

// NodeID returns the node id packed into every id.
func (s *Snowflake) NodeID() int64 {
	return s.node
}

// NextID returns the next id.
func (s *Snowflake) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.NowMillis()
	if now < s.last {
		if s.last-now > s.maxRollback {
			return 0, &ClockRollbackError{Last: s.last, Now: now}
		}
		now = s.waitUntil(s.last)
	}
	if now < s.epoch {
		return 0, ErrClockBeforeEpoch
	}

	if now == s.last {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 4096 ids handed out this millisecond
			now = s.waitUntil(s.last + 1)
		}
	} else {
		s.sequence = 0
	}

	elapsed := now - s.epoch
	if elapsed > maxElapsed {
		return 0, ErrEpochExhausted
	}
	s.last = now

	return elapsed<<timestampShift | s.node<<nodeShift | s.sequence, nil
}

// Decompose splits an id produced by s into its creation time, node id and sequence.
func (s *Snowflake) Decompose(id int64) (time.Time, int64, int64) {
	elapsed, node, seq := Parts(id)
	return time.UnixMilli(s.epoch + elapsed).UTC(), node, seq
}

// Parts splits a snowflake id into milliseconds since epoch, node id and sequence.
func Parts(id int64) (elapsed, node, sequence int64) {
	return id >> timestampShift, (id >> nodeShift) & MaxNodeID, id & maxSequence
}

// waitUntil blocks until the clock reads at least target and returns the reading.
// Called with s.mu held.
func (s *Snowflake) waitUntil(target int64) int64 {
	now := s.clock.NowMillis()
	for now < target {
		if d := target - now; d > 1 {
			time.Sleep(time.Duration(d-1) * time.Millisecond)
		} else {
			runtime.Gosched()
		}
		now = s.clock.NowMillis()
	}
	return now
}
