package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelFlagOneShot(t *testing.T) {
	var f CancelFlag

	assert.False(t, f.Cancelled())
	assert.True(t, f.Cancel())
	assert.True(t, f.Cancelled())
	assert.False(t, f.Cancel(), "second cancel must not observe the transition")
	assert.True(t, f.Cancelled())
}

func TestCancelFlagConcurrent(t *testing.T) {
	var f CancelFlag
	var wg sync.WaitGroup
	wins := make(chan struct{}, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Cancel() {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one caller observes the transition")
	assert.True(t, f.Cancelled())
}
