package ids

import (
	"sync"
	"testing"
)

func TestGenerateMonotonic(t *testing.T) {
	prev := Generate()
	for i := 0; i < 10000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	const workers = 8
	const perWorker = 2000

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*perWorker)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, Generate())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
					return
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()
}

func TestGenerateString(t *testing.T) {
	if GenerateString() == "" {
		t.Fatal("empty id")
	}
}

func TestSetNodeIDClampsRange(t *testing.T) {
	defer SetNodeID(1)
	SetNodeID(5000)
	if defaultGen.nodeID != 1 {
		t.Fatalf("out-of-range node id kept: %d", defaultGen.nodeID)
	}
	SetNodeID(42)
	if defaultGen.nodeID != 42 {
		t.Fatalf("node id = %d", defaultGen.nodeID)
	}
}
