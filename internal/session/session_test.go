package session

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStore_OverwriteKeepsLatest(t *testing.T) {
	s := NewLRUStore(0, 0)
	s.Put("abc", "Article 1: Fee is 800.")
	s.Put("abc", "Article 7: Le dépôt de garantie est de deux mois.")
	if got := s.Get("abc"); got != "Article 7: Le dépôt de garantie est de deux mois." {
		t.Errorf("Get = %q, want the second document", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStore_MissingSession(t *testing.T) {
	s := NewLRUStore(4, time.Minute)
	if got := s.Get("nope"); got != NoContext {
		t.Errorf("Get = %q, want NoContext", got)
	}
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := NewLRUStore(2, time.Minute)
	s.Put("a", "A")
	s.Put("b", "B")
	_ = s.Get("a") // a becomes most recent
	s.Put("c", "C")
	if got := s.Get("b"); got != NoContext {
		t.Errorf("b should have been evicted, got %q", got)
	}
	if s.Get("a") != "A" || s.Get("c") != "C" {
		t.Error("a and c should survive")
	}
}

func TestStore_Expires(t *testing.T) {
	s := NewLRUStore(4, 20*time.Millisecond)
	s.Put("a", "A")
	time.Sleep(60 * time.Millisecond)
	if got := s.Get("a"); got != NoContext {
		t.Errorf("expired entry returned %q", got)
	}
}

func TestStore_Concurrent(t *testing.T) {
	s := NewLRUStore(64, time.Minute)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%4)
			for j := range 100 {
				s.Put(id, fmt.Sprint(j))
				_ = s.Get(id)
			}
		}()
	}
	wg.Wait()
	if s.Len() != 4 {
		t.Errorf("Len = %d, want 4", s.Len())
	}
}
