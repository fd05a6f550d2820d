package ringchan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain[T any](rc *RingChannel[T]) []T {
	var got []T
	for {
		select {
		case v := <-rc.C():
			got = append(got, v)
		default:
			return got
		}
	}
}

func TestRingChannel_OverwritesOldest(t *testing.T) {
	// GOAL: Verify a full queue keeps the newest values and never blocks the producer
	//
	// TEST SCENARIO: Send 10 values into capacity 3 → only 7, 8, 9 remain, 7 drops counted

	rc := New[int](3)
	dropped := 0
	for i := 0; i < 10; i++ {
		if rc.Send(i) {
			dropped++
		}
	}

	assert.Equal(t, Stats{Sent: 10, Dropped: 7, Queued: 3}, rc.Stats())
	assert.Equal(t, 7, dropped, "Send MUST report every overwrite")
	assert.Equal(t, []int{7, 8, 9}, drain(rc))
	assert.Equal(t, 0, rc.Stats().Queued)
}

func TestRingChannel_NoDropBelowCapacity(t *testing.T) {
	rc := New[string](2)
	assert.False(t, rc.Send("a"))
	assert.False(t, rc.Send("b"))

	assert.Equal(t, Stats{Sent: 2, Queued: 2}, rc.Stats())
	assert.Equal(t, []string{"a", "b"}, drain(rc))
}

func TestRingChannel_ConcurrentProducers(t *testing.T) {
	rc := New[int](8)

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				rc.Send(i)
			}
		}()
	}
	wg.Wait()

	s := rc.Stats()
	assert.LessOrEqual(t, s.Queued, 8)
	assert.Equal(t, int64(4000), s.Sent)
	assert.Equal(t, int64(4000-s.Queued), s.Dropped)
}

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}
