package utils

import (
	"sync"
	"testing"
)

func TestNextStatusSeqIsUnique(t *testing.T) {
	const n = 200
	seen := make(chan uint64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- NextStatusSeq()
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for v := range seen {
		if unique[v] {
			t.Fatalf("duplicate seq %d", v)
		}
		unique[v] = true
	}
	if len(unique) != n {
		t.Fatalf("expected %d values, got %d", n, len(unique))
	}
}
