package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_NextIncrements(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())
}

func TestDeterministicClock_At(t *testing.T) {
	clock := NewDeterministicClockAt(41)
	assert.Equal(t, int64(42), clock.Next())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Next()
	clock.Next()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ConcurrentNext(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 20, 50

	var wg sync.WaitGroup
	seen := make(chan int64, workers*calls)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- clock.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for s := range seen {
		require.False(t, unique[s], "duplicate seq %d", s)
		unique[s] = true
	}
	assert.Len(t, unique, workers*calls)
	assert.Equal(t, int64(workers*calls), clock.Current())
}

func TestSteppingTime(t *testing.T) {
	now := SteppingTime(Epoch, time.Second)
	assert.Equal(t, Epoch, now())
	assert.Equal(t, Epoch.Add(time.Second), now())
	assert.Equal(t, Epoch.Add(2*time.Second), now())
}

func TestFixedTime(t *testing.T) {
	now := FixedTime(Epoch)
	assert.Equal(t, now(), now())
}

func TestFixedSessionGenerator(t *testing.T) {
	assert.Equal(t, "s-1", NewFixedSessionGenerator("s-1").Generate())
	assert.Equal(t, "test-session-default", NewFixedSessionGenerator("").Generate())
}
