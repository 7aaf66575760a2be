package closure

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores() map[string]Store[func() int] {
	return map[string]Store[func() int]{
		"thread": NewThreadStore[func() int]("test"),
		"global": NewGlobalStore[func() int]("test"),
	}
}

func TestStoreInsertLookupRemove(t *testing.T) {
	for name, s := range stores() {
		t.Run(name, func(t *testing.T) {
			s.Insert(3, func() int { return 42 })

			fn, ok := s.Lookup(3)
			require.True(t, ok)
			assert.Equal(t, 42, fn())
			assert.Equal(t, 1, s.Len())

			_, ok = s.Lookup(4)
			assert.False(t, ok)

			s.Remove(3)
			_, ok = s.Lookup(3)
			assert.False(t, ok)
			assert.Zero(t, s.Len())
		})
	}
}

func TestStoreDuplicateInsertPanics(t *testing.T) {
	for name, s := range stores() {
		t.Run(name, func(t *testing.T) {
			s.Insert(0, func() int { return 1 })
			assert.PanicsWithValue(t, "test: slot 0 already occupied", func() {
				s.Insert(0, func() int { return 2 })
			})
			fn, _ := s.Lookup(0)
			assert.Equal(t, 1, fn(), "first entry must survive the rejected insert")
		})
	}
}

func TestStoreRemoveAbsentPanics(t *testing.T) {
	for name, s := range stores() {
		t.Run(name, func(t *testing.T) {
			assert.PanicsWithValue(t, "test: slot 7 is not occupied", func() { s.Remove(7) })

			s.Insert(7, func() int { return 0 })
			s.Remove(7)
			assert.Panics(t, func() { s.Remove(7) }, "double removal")
		})
	}
}

func TestStoreNoLeakage(t *testing.T) {
	for name, s := range stores() {
		t.Run(name, func(t *testing.T) {
			const n = 64
			for i := Slot(0); i < n; i++ {
				s.Insert(i, func() int { return int(i) })
			}
			for i := Slot(0); i < n; i++ {
				s.Remove(i)
			}
			assert.Zero(t, s.Len())
			for i := Slot(0); i < n; i++ {
				_, ok := s.Lookup(i)
				assert.False(t, ok, "slot %d", i)
			}
		})
	}
}

func TestGlobalStoreFromOtherGoroutines(t *testing.T) {
	s := NewGlobalStore[func() int]("test")
	s.Insert(1, func() int { return 11 })

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fn, ok := s.Lookup(1); ok {
				results[i] = fn()
			}
		}()
	}
	wg.Wait()

	for i, r := range results {
		assert.Equal(t, 11, r, "goroutine %d", i)
	}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "mouse", Mouse.String())
	assert.Equal(t, "winevent", WinEvent.String())
	assert.Equal(t, "category(99)", Category(99).String())
}

func TestContainReturnsResult(t *testing.T) {
	assert.Equal(t, uintptr(5), Contain(func() uintptr { return 5 }))
}

func TestContainAbortsOnPanic(t *testing.T) {
	aborted := false
	orig := abort
	abort = func() { aborted = true }
	defer func() { abort = orig }()

	var got uintptr
	assert.NotPanics(t, func() {
		got = Contain(func() uintptr { panic("boom") })
	})
	assert.True(t, aborted)
	assert.Zero(t, got)
}
