package chain

import (
	"errors"
	"testing"
)

func TestEntry_SampleEmptyReturnsFalse(t *testing.T) {
	e := NewEntry()
	if _, ok := e.Sample(); ok {
		t.Fatal("Sample() on empty entry returned ok=true")
	}
}

func TestEntry_InsertRejectsInvalid(t *testing.T) {
	e := NewEntry()
	if err := e.Insert("", 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Insert(\"\", 1) = %v, want ErrInvalidInput", err)
	}
	if err := e.Insert("tok", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Insert(tok, 0) = %v, want ErrInvalidInput", err)
	}
}

func TestEntry_SingleSuffixDeterministic(t *testing.T) {
	e := NewEntry()
	if err := e.Insert("only", 5); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	for i := 0; i < 20; i++ {
		tok, ok := e.Sample()
		if !ok || tok != "only" {
			t.Fatalf("Sample() = (%q, %v), want (\"only\", true)", tok, ok)
		}
	}
	e.mu.RLock()
	built := e.table != nil
	e.mu.RUnlock()
	if built {
		t.Fatal("single-suffix entry built an alias table")
	}
}

func TestEntry_InsertMergesWeight(t *testing.T) {
	e := NewEntry()
	if err := e.Insert("tok", 3); err != nil {
		t.Fatal(err)
	}
	if err := e.Insert("tok", 4); err != nil {
		t.Fatal(err)
	}
	if got := e.TotalWeight(); got != 7 {
		t.Fatalf("TotalWeight() = %d, want 7", got)
	}
	if got := e.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestEntry_IndexBuildsPastThreshold(t *testing.T) {
	e := NewEntry()
	for i := 0; i < hashThreshold+5; i++ {
		tok := string(rune('a'+i%26)) + string(rune('a'+i/26))
		if err := e.Insert(tok+"-"+tok, 1); err != nil {
			t.Fatal(err)
		}
	}
	e.mu.RLock()
	hasIndex := e.index != nil
	e.mu.RUnlock()
	if !hasIndex {
		t.Fatal("expected index to be built past hashThreshold")
	}
}

func TestEntry_SampleConvergesAndBuildsTable(t *testing.T) {
	e := NewEntry()
	if err := e.Insert("common", 90); err != nil {
		t.Fatal(err)
	}
	if err := e.Insert("rare", 10); err != nil {
		t.Fatal(err)
	}

	counts := map[string]int{}
	const trials = 20000
	for i := 0; i < trials; i++ {
		tok, ok := e.Sample()
		if !ok {
			t.Fatal("Sample() returned ok=false")
		}
		counts[tok]++
	}

	e.mu.RLock()
	built := e.table != nil
	e.mu.RUnlock()
	if !built {
		t.Fatal("multi-suffix entry never built an alias table")
	}

	frac := float64(counts["common"]) / float64(trials)
	if frac < 0.85 || frac > 0.95 {
		t.Fatalf("P(common) = %v, want ~0.9", frac)
	}
}

func TestEntry_EnumeratePreservesInsertionOrder(t *testing.T) {
	e := NewEntry()
	tokens := []string{"first", "second", "third"}
	for _, tok := range tokens {
		if err := e.Insert(tok, 1); err != nil {
			t.Fatal(err)
		}
	}
	views := e.Enumerate()
	if len(views) != len(tokens) {
		t.Fatalf("Enumerate() len = %d, want %d", len(views), len(tokens))
	}
	for i, tok := range tokens {
		if views[i].Token != tok || views[i].Weight != 1 {
			t.Fatalf("Enumerate()[%d] = %+v, want token=%q weight=1", i, views[i], tok)
		}
	}
}
