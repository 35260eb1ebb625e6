package auction

import "testing"

func TestIDGenerator(t *testing.T) {
	var g idGenerator

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := g.next()
		if err != nil {
			t.Fatalf("next() error = %v", err)
		}
		if len(id) != 4 {
			t.Fatalf("id %q, want 4 chars", id)
		}
		if seen[id] {
			t.Fatalf("id %q issued twice", id)
		}
		seen[id] = true
	}
}

func TestIDGeneratorRelease(t *testing.T) {
	var g idGenerator

	g.reserve("AAAA")
	g.release("AAAA")
	// A released id may be issued again, reserving it must not fail.
	g.reserve("AAAA")
}
