package app

import (
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Pages/internal/core"
	"github.com/dkeye/Pages/internal/domain"
)

// fakeConn is a test double for the transport endpoint. It records
// every frame delivered to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	fail   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errTestBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

var errTestBackpressure = errors.New("backpressure")

func newSession(name string) (core.ClientSession, *fakeConn) {
	conn := &fakeConn{}
	user := &domain.User{ID: domain.UserID(name), Name: name, Color: "#e6194b"}
	return core.NewClientSession(user, conn), conn
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	sess, _ := newSession("alice")

	reg.Register("conn-1", sess)

	user, ok := reg.Lookup("alice")
	if !ok {
		t.Fatal("expected alice to be registered")
	}
	if user.Name != "alice" {
		t.Errorf("expected name alice, got %s", user.Name)
	}
	if reg.Count() != 1 {
		t.Errorf("expected 1 entry, got %d", reg.Count())
	}
}

func TestLookupAbsent(t *testing.T) {
	reg := NewRegistry()
	if _, ok := reg.Lookup("ghost"); ok {
		t.Error("expected lookup of unknown user to report absence")
	}
}

func TestDuplicateLoginOverwrites(t *testing.T) {
	reg := NewRegistry()
	first, firstConn := newSession("alice")
	second, _ := newSession("alice")

	reg.Register("conn-1", first)
	reg.Register("conn-2", second)

	if reg.Count() != 1 {
		t.Fatalf("expected a single entry per user, got %d", reg.Count())
	}
	sess, ok := reg.Session("alice")
	if !ok || sess != second {
		t.Error("expected the later session to own the entry")
	}
	// The superseded transport is not force-closed.
	if firstConn.closed {
		t.Error("superseded connection must not be closed by the registry")
	}
}

func TestStaleUnregisterIgnored(t *testing.T) {
	reg := NewRegistry()
	first, _ := newSession("alice")
	second, _ := newSession("alice")

	reg.Register("conn-1", first)
	reg.Register("conn-2", second)

	// The first connection closes late; its entry is long gone.
	if reg.Unregister("alice", "conn-1") {
		t.Error("stale connection must not evict its replacement")
	}
	if _, ok := reg.Lookup("alice"); !ok {
		t.Error("replacement entry must survive the stale close")
	}

	if !reg.Unregister("alice", "conn-2") {
		t.Error("owning connection must be able to unregister")
	}
	if _, ok := reg.Lookup("alice"); ok {
		t.Error("entry must be gone after unregister")
	}
}

func TestUnregisterAbsentIsNoop(t *testing.T) {
	reg := NewRegistry()
	if reg.Unregister("ghost", "conn-1") {
		t.Error("unregister of an absent user must be a no-op")
	}
}
