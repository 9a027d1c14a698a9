package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoop_RunsInOrder(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Do(func() {})

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestLoop_PostFromManyGoroutines(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	var wg sync.WaitGroup
	count := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Post(func() { count++ })
			}
		}()
	}
	wg.Wait()

	var final int
	assert.True(t, l.Do(func() { final = count }))
	assert.Equal(t, 1000, final)
}

func TestLoop_PostFromLoop(t *testing.T) {
	l := NewLoop()
	defer l.Close()

	done := make(chan string, 1)
	l.Post(func() {
		l.Post(func() { done <- "nested" })
	})
	assert.Equal(t, "nested", <-done)
}

func TestLoop_CloseDrainsQueue(t *testing.T) {
	l := NewLoop()

	ran := 0
	for i := 0; i < 10; i++ {
		l.Post(func() { ran++ })
	}
	l.Close()
	assert.Equal(t, 10, ran)

	// closed loops drop work
	l.Post(func() { ran++ })
	assert.False(t, l.Do(func() { ran++ }))
	assert.Equal(t, 10, ran)

	l.Close()
}
