package dedup

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewReturnsTrueOncePerURL(t *testing.T) {
	s := NewSet()

	assert.True(t, s.IsNew("http://a.com"))
	assert.False(t, s.IsNew("http://a.com"))
	assert.False(t, s.IsNew("http://a.com"))

	assert.True(t, s.IsNew("http://b.com"))
	assert.False(t, s.IsNew("http://b.com"))
}

func TestNoNormalization(t *testing.T) {
	s := NewSet()

	// Spellings are distinct identities even when they name the same page.
	assert.True(t, s.IsNew("http://a.com/page"))
	assert.True(t, s.IsNew("http://a.com/page/"))
	assert.True(t, s.IsNew("HTTP://a.com/page"))
	assert.Equal(t, 3, s.Len())
}

func TestIsNewConcurrent(t *testing.T) {
	s := NewSet()

	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.IsNew("http://raced.example") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, 1, s.Len())
}

func TestLen(t *testing.T) {
	s := NewSet()
	assert.Equal(t, 0, s.Len())

	s.IsNew("http://a.com")
	s.IsNew("http://b.com")
	s.IsNew("http://a.com") // duplicate, no growth
	assert.Equal(t, 2, s.Len())
}
