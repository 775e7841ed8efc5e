// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package chatter_test

import (
	"fmt"
	"testing"

	"github.com/creachadair/chatter"
	"github.com/creachadair/taskgroup"
	"github.com/google/go-cmp/cmp"
)

// A stub is a Handle with no behaviour, used to check registry identity.
type stub struct{ name string }

func (*stub) Deliver(*chatter.Frame) bool { return true }
func (*stub) Close()                      {}

func TestDirectory(t *testing.T) {
	d := chatter.NewDirectory()
	h1, h2 := &stub{"one"}, &stub{"two"}

	if h, ok := d.Lookup("ann"); ok {
		t.Errorf("Lookup in empty directory: got %v, want none", h)
	}
	if old := d.Register("ann", h1); old != nil {
		t.Errorf("Register new entry: displaced %v, want nil", old)
	}
	if h, ok := d.Lookup("ann"); !ok || h != chatter.Handle(h1) {
		t.Errorf("Lookup: got %v, %v; want %v, true", h, ok, h1)
	}

	// Re-registering the same handle displaces nothing.
	if old := d.Register("ann", h1); old != nil {
		t.Errorf("Register same handle: displaced %v, want nil", old)
	}

	// Last write wins, and the displaced handle is returned to the caller.
	if old := d.Register("ann", h2); old != chatter.Handle(h1) {
		t.Errorf("Register replacement: displaced %v, want %v", old, h1)
	}
	if h, _ := d.Lookup("ann"); h != chatter.Handle(h2) {
		t.Errorf("Lookup after replacement: got %v, want %v", h, h2)
	}

	// The displaced owner cannot evict its replacement.
	d.Unregister("ann", h1)
	if h, ok := d.Lookup("ann"); !ok || h != chatter.Handle(h2) {
		t.Errorf("Lookup after stale Unregister: got %v, %v; want %v, true", h, ok, h2)
	}

	d.Unregister("ann", h2)
	if h, ok := d.Lookup("ann"); ok {
		t.Errorf("Lookup after Unregister: got %v, want none", h)
	}
	d.Unregister("ann", h2) // no-op on a missing entry
}

func TestDirectoryNames(t *testing.T) {
	d := chatter.NewDirectory()
	for _, name := range []string{"wangwu", "zhangsan", "lisi"} {
		d.Register(name, &stub{name})
	}
	want := []string{"lisi", "wangwu", "zhangsan"}
	if diff := cmp.Diff(want, d.Names()); diff != "" {
		t.Errorf("Names (-want, +got):\n%s", diff)
	}
	if got := d.Len(); got != 3 {
		t.Errorf("Len: got %d, want 3", got)
	}
	if got := len(d.Handles()); got != 3 {
		t.Errorf("Handles: got %d entries, want 3", got)
	}
}

func TestDirectoryConcurrent(t *testing.T) {
	const numUsers = 64

	d := chatter.NewDirectory()
	g := taskgroup.New(nil)
	for i := range numUsers {
		name := fmt.Sprintf("user%03d", i)
		g.Go(func() error {
			h := &stub{name}
			d.Register(name, h)
			d.Lookup(name)
			if i%2 == 1 {
				d.Unregister(name, h)
			}
			return nil
		})
	}
	g.Wait()

	if got, want := d.Len(), numUsers/2; got != want {
		t.Errorf("Len: got %d, want %d", got, want)
	}
	var want []string
	for i := 0; i < numUsers; i += 2 {
		want = append(want, fmt.Sprintf("user%03d", i))
	}
	if diff := cmp.Diff(want, d.Names()); diff != "" {
		t.Errorf("Names (-want, +got):\n%s", diff)
	}
}
