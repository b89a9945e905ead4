package reentrant

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEnabled(t *testing.T) {
	done := make(chan bool, 1)
	go func() {
		defer Forget()
		done <- Enabled()
	}()
	assert.True(t, <-done)
}

func TestDisableEnableCurrentGoroutine(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer Forget()
		assert.True(t, Enabled())
		Disable()
		assert.False(t, Enabled())
		Enable()
		assert.True(t, Enabled())
	}()
	<-done
}

func TestFlagIsPerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	results := make(chan bool, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer Forget()
		Disable()
		results <- Enabled()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer Forget()
		results <- Enabled()
	}()

	wg.Wait()
	close(results)

	var got []bool
	for r := range results {
		got = append(got, r)
	}
	assert.ElementsMatch(t, []bool{false, true}, got)
}
