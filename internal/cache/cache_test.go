package cache

import (
	"bytes"
	"fmt"
	"testing"
)

func TestGetPut(t *testing.T) {
	c := New(4)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache reported a hit")
	}

	c.Put("a", []byte{1})
	got, ok := c.Get("a")
	if !ok || !bytes.Equal(got, []byte{1}) {
		t.Errorf("Get(a) = %v, %v", got, ok)
	}
}

func TestEntriesImmutable(t *testing.T) {
	c := New(4)
	c.Put("a", []byte{1})
	c.Put("a", []byte{2}) // must not overwrite

	got, _ := c.Get("a")
	if !bytes.Equal(got, []byte{1}) {
		t.Errorf("entry was overwritten: %v", got)
	}
}

func TestEviction(t *testing.T) {
	c := New(2)
	c.Put("a", []byte{1})
	c.Put("b", []byte{2})
	c.Get("a") // refresh a
	c.Put("c", []byte{3})

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestDisabled(t *testing.T) {
	c := New(0)
	c.Put("a", []byte{1})
	if _, ok := c.Get("a"); ok {
		t.Error("disabled cache stored an entry")
	}
}

func TestManyKeys(t *testing.T) {
	c := New(100)
	for i := 0; i < 200; i++ {
		c.Put(fmt.Sprintf("k%d", i), []byte{byte(i)})
	}
	if c.Len() != 100 {
		t.Errorf("Len() = %d, want 100", c.Len())
	}
}
