package pool

import (
	"errors"
	"reflect"
	"testing"

	"crawlproxy/proxypool/model"
)

func TestPool_PutKeepsOrderAndLastCredential(t *testing.T) {
	p := New()
	p.Put(model.Entry{Address: "http://p1:1", Credential: "a:a"})
	p.Put(model.Entry{Address: "http://p2:2"})
	p.Put(model.Entry{Address: "http://p1:1", Credential: "b:b"})

	if p.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", p.Len())
	}
	want := []string{"http://p1:1", "http://p2:2"}
	if got := p.Addresses(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
	e, ok := p.Get("http://p1:1")
	if !ok || e.Credential != "b:b" {
		t.Errorf("Expected last credential 'b:b', got %+v (ok=%v)", e, ok)
	}
}

func TestPool_DeleteIsIdempotent(t *testing.T) {
	p := FromEntries([]model.Entry{
		{Address: "http://p1:1"},
		{Address: "http://p2:2"},
		{Address: "http://p3:3"},
	})

	if !p.Delete("http://p2:2") {
		t.Fatal("Expected first delete to report removal")
	}
	if p.Delete("http://p2:2") {
		t.Error("Expected second delete to be a no-op")
	}
	if p.Len() != 2 {
		t.Errorf("Expected 2 entries after delete, got %d", p.Len())
	}
	want := []string{"http://p1:1", "http://p3:3"}
	if got := p.Addresses(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestPool_EmptyPoolIsExhausted(t *testing.T) {
	p := New()
	if _, err := p.Random(); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("Random() on empty pool: expected ErrPoolExhausted, got %v", err)
	}
}

func TestPool_RandomUsesInjectedSource(t *testing.T) {
	p := FromEntries([]model.Entry{{Address: "http://p1:1"}, {Address: "http://p2:2"}})
	p.SetRand(func(n int) int { return n - 1 })

	got, err := p.Random()
	if err != nil {
		t.Fatalf("Random() returned an error: %v", err)
	}
	if got != "http://p2:2" {
		t.Errorf("Expected 'http://p2:2', got '%s'", got)
	}
}

func TestPool_AddressesReturnsCopy(t *testing.T) {
	p := FromEntries([]model.Entry{{Address: "http://p1:1"}})
	addrs := p.Addresses()
	addrs[0] = "changed"
	if got := p.Addresses(); got[0] != "http://p1:1" {
		t.Errorf("Pool was mutated through Addresses(): got %v", got)
	}
}
