package booking

import (
	"sync"
	"testing"
)

func TestIssueSequentialPerDoctor(t *testing.T) {
	c := NewCounter()

	first := c.Issue("D-17")
	second := c.Issue("D-17")
	other := c.Issue("D-99")

	if first.Number != 1 || second.Number != 2 {
		t.Fatalf("expected 1 then 2 for same doctor, got %d then %d", first.Number, second.Number)
	}
	if other.Number != 1 {
		t.Fatalf("different doctor must start its own sequence, got %d", other.Number)
	}
	if first.ID == second.ID {
		t.Fatalf("token ids must differ: %s", first.ID)
	}
}

func TestConcurrentIssuanceYieldsDistinctTokens(t *testing.T) {
	c := NewCounter()
	const workers = 64

	var wg sync.WaitGroup
	ids := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- c.Issue("D-17").ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, workers)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate token id issued: %s", id)
		}
		seen[id] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d distinct tokens, got %d", workers, len(seen))
	}
}
