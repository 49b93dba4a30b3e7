//go:build unit

package lazy

import (
	"errors"
	"sync"
	"testing"
)

func TestValueDefersEvaluation(t *testing.T) {
	calls := 0
	v := New(func() (string, error) {
		calls++
		return "alice", nil
	})

	if calls != 0 {
		t.Fatalf("function ran before Get: calls = %d", calls)
	}
	if v.Evaluated() {
		t.Fatal("Evaluated() = true before Get")
	}

	for i := 0; i < 3; i++ {
		got, err := v.Get()
		if err != nil {
			t.Fatalf("Get() returned error: %v", err)
		}
		if got != "alice" {
			t.Errorf("want 'alice'; got %q", got)
		}
	}
	if calls != 1 {
		t.Errorf("want 1 call; got %d", calls)
	}
	if !v.Evaluated() {
		t.Error("Evaluated() = false after Get")
	}
}

func TestValueMemoizesError(t *testing.T) {
	wantErr := errors.New("lookup failed")
	calls := 0
	v := New(func() (int, error) {
		calls++
		return 0, wantErr
	})

	for i := 0; i < 2; i++ {
		if _, err := v.Get(); !errors.Is(err, wantErr) {
			t.Errorf("want %v; got %v", wantErr, err)
		}
	}
	if calls != 1 {
		t.Errorf("want 1 call; got %d", calls)
	}
}

func TestValueConcurrentGet(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	v := New(func() (int, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return 42, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, _ := v.Get(); got != 42 {
				t.Errorf("want 42; got %d", got)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("want 1 call; got %d", calls)
	}
}

func TestReady(t *testing.T) {
	v := Ready("preset")
	if !v.Evaluated() {
		t.Error("Ready value should report Evaluated")
	}
	got, err := v.Get()
	if err != nil || got != "preset" {
		t.Errorf("want ('preset', nil); got (%q, %v)", got, err)
	}
}
