package helpers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	ms := func(xs ...int) []time.Duration {
		ds := make([]time.Duration, len(xs))
		for i, x := range xs {
			ds[i] = time.Duration(x) * time.Millisecond
		}
		return ds
	}
	cases := []struct {
		name   string
		b      Backoff
		n      int
		expect []time.Duration
	}{
		{"hub-defaults", Backoff{Min: 250 * time.Millisecond, Max: 5 * time.Second}, 8,
			ms(250, 500, 1000, 2000, 4000, 5000, 5000, 5000)},
		{"k=3", Backoff{Min: 100 * time.Millisecond, Max: time.Second, K: 3}, 4,
			ms(100, 300, 900, 1000)},
		{"min=max", Backoff{Min: time.Second, Max: time.Second}, 3,
			ms(1000, 1000, 1000)},
		{"res=100ms", Backoff{Min: 150 * time.Millisecond, Max: time.Second, K: 1.5, Res: 100 * time.Millisecond}, 4,
			ms(100, 100, 100, 100)},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			got := make([]time.Duration, 0, c.n)
			for i := 0; i < c.n; i++ {
				got = append(got, c.b.Next())
			}
			assert.Equal(t, c.expect, got)
		})
	}
}

func TestBackoffReset(t *testing.T) {
	t.Parallel()
	b := Backoff{Min: 250 * time.Millisecond, Max: 5 * time.Second}
	assert.Equal(t, 250*time.Millisecond, b.Peek())
	b.Next()
	b.Next()
	b.Next()
	assert.Equal(t, 2*time.Second, b.Peek())
	b.Reset()
	assert.Equal(t, 250*time.Millisecond, b.Peek())
	assert.Equal(t, 250*time.Millisecond, b.Next())
	assert.Equal(t, 500*time.Millisecond, b.Next())
}

func TestBackoffConcurrent(t *testing.T) {
	t.Parallel()
	b := Backoff{Min: time.Millisecond, Max: time.Hour}
	var wg sync.WaitGroup
	seen := make(chan time.Duration, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- b.Next()
		}()
	}
	wg.Wait()
	close(seen)
	// every delay is handed out exactly once
	uniq := make(map[time.Duration]struct{})
	for d := range seen {
		uniq[d] = struct{}{}
	}
	assert.Len(t, uniq, 20)
}
