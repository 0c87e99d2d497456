package app

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/Pages/internal/core"
	"github.com/dkeye/Pages/internal/domain"
)

// wireEvent is a superset of every outbound event shape, for decoding
// captured frames in tests.
type wireEvent struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId"`
	Users      []domain.User   `json:"users"`
	Content    string          `json:"content"`
	Title      string          `json:"title"`
	UserID     string          `json:"userId"`
	Position   json.RawMessage `json:"position"`
	User       *domain.User    `json:"user"`
}

func decodeFrames(t *testing.T, frames []core.Frame) []wireEvent {
	t.Helper()
	out := make([]wireEvent, 0, len(frames))
	for _, f := range frames {
		var ev wireEvent
		if err := json.Unmarshal(f, &ev); err != nil {
			t.Fatalf("failed to decode frame %q: %v", f, err)
		}
		out = append(out, ev)
	}
	return out
}

func userIDs(users []domain.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = string(u.ID)
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// connect registers a user and returns its capture conn, mimicking a
// completed authentication at connection time.
func connect(reg *Registry, name string) (domain.UserID, *fakeConn) {
	sess, conn := newSession(name)
	reg.Register(core.ConnID(name+"-conn"), sess)
	return domain.UserID(name), conn
}

func TestJoinRosterIncludesJoiner(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, conn := connect(reg, "alice")

	p.Join("doc-1", alice)

	events := decodeFrames(t, conn.received())
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventUserJoined {
		t.Errorf("expected %s, got %s", EventUserJoined, events[0].Type)
	}
	if !equalIDs(userIDs(events[0].Users), "alice") {
		t.Errorf("roster must include the joiner, got %v", userIDs(events[0].Users))
	}
}

func TestRosterOrderMatchesJoinOrder(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	bob, bobConn := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)

	aliceEvents := decodeFrames(t, aliceConn.received())
	if len(aliceEvents) != 2 {
		t.Fatalf("alice expected 2 events, got %d", len(aliceEvents))
	}
	if !equalIDs(userIDs(aliceEvents[1].Users), "alice", "bob") {
		t.Errorf("roster must be in join order, got %v", userIDs(aliceEvents[1].Users))
	}

	bobEvents := decodeFrames(t, bobConn.received())
	if len(bobEvents) != 1 {
		t.Fatalf("bob expected 1 event, got %d", len(bobEvents))
	}
	if !equalIDs(userIDs(bobEvents[0].Users), "alice", "bob") {
		t.Errorf("joiner's roster must match the broadcast one, got %v", userIDs(bobEvents[0].Users))
	}
}

func TestDisconnectNotifiesRemainingMembers(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	bob, bobConn := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)

	reg.Unregister(bob, "bob-conn")
	p.Disconnect(bob)

	aliceEvents := decodeFrames(t, aliceConn.received())
	last := aliceEvents[len(aliceEvents)-1]
	if last.Type != EventUserLeft {
		t.Fatalf("expected %s, got %s", EventUserLeft, last.Type)
	}
	if !equalIDs(userIDs(last.Users), "alice") {
		t.Errorf("remaining roster must be [alice], got %v", userIDs(last.Users))
	}

	// The departing connection hears nothing about its own leave.
	for _, ev := range decodeFrames(t, bobConn.received()) {
		if ev.Type == EventUserLeft {
			t.Error("departing user must not receive the user-left event")
		}
	}
}

func TestDisconnectUnwindsEveryDocument(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	bob, _ := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)
	p.Join("doc-2", bob)

	reg.Unregister(bob, "bob-conn")
	p.Disconnect(bob)

	if p.MemberCount("doc-1") != 1 {
		t.Errorf("doc-1 expected 1 member, got %d", p.MemberCount("doc-1"))
	}
	if p.MemberCount("doc-2") != 0 {
		t.Errorf("doc-2 expected 0 members, got %d", p.MemberCount("doc-2"))
	}
	// doc-2 became empty and must leave no trace.
	for _, dp := range p.ActiveDocuments() {
		if dp.DocumentID == "doc-2" {
			t.Error("empty document membership must be garbage collected")
		}
	}

	// Exactly one user-left per affected document with remaining members.
	left := 0
	for _, ev := range decodeFrames(t, aliceConn.received()) {
		if ev.Type == EventUserLeft {
			left++
		}
	}
	if left != 1 {
		t.Errorf("expected exactly 1 user-left event, got %d", left)
	}

	// Disconnect is idempotent: nothing left to unwind.
	before := len(aliceConn.received())
	p.Disconnect(bob)
	if len(aliceConn.received()) != before {
		t.Error("second disconnect must not broadcast anything")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, conn := connect(reg, "alice")

	p.Join("doc-1", alice)
	p.Join("doc-1", alice)

	if p.MemberCount("doc-1") != 1 {
		t.Errorf("joining twice must not grow membership, got %d", p.MemberCount("doc-1"))
	}
	events := decodeFrames(t, conn.received())
	if len(events) != 2 {
		t.Fatalf("each join call broadcasts a roster, expected 2 events, got %d", len(events))
	}
	if !equalIDs(userIDs(events[0].Users), "alice") || !equalIDs(userIDs(events[1].Users), "alice") {
		t.Error("both roster broadcasts must have identical content")
	}
}

func TestChangeNotEchoedToSender(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	bob, bobConn := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)
	aliceBefore := len(aliceConn.received())

	p.RouteChange("doc-1", alice, Change{Content: "hello", Title: "draft", UserID: alice})

	bobEvents := decodeFrames(t, bobConn.received())
	last := bobEvents[len(bobEvents)-1]
	if last.Type != EventDocumentUpdated {
		t.Fatalf("expected %s, got %s", EventDocumentUpdated, last.Type)
	}
	if last.Content != "hello" || last.Title != "draft" || last.UserID != "alice" {
		t.Errorf("change payload must pass through, got %+v", last)
	}
	if len(aliceConn.received()) != aliceBefore {
		t.Error("sender must never receive its own change event")
	}
}

func TestChangeFromNonMemberStillDelivered(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	p.Join("doc-1", alice)

	// The claimed userId is pass-through and unverified.
	p.RouteChange("doc-1", "mallory", Change{Content: "x", UserID: "someone-else"})

	events := decodeFrames(t, aliceConn.received())
	last := events[len(events)-1]
	if last.Type != EventDocumentUpdated {
		t.Fatalf("members must still hear a non-member's change, got %s", last.Type)
	}
	if last.UserID != "someone-else" {
		t.Errorf("claimed userId must ride through, got %s", last.UserID)
	}
}

func TestCursorCarriesResolvedUser(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, _ := connect(reg, "alice")
	bob, bobConn := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)

	p.RouteCursor("doc-1", alice, json.RawMessage(`{"line":3,"ch":14}`))

	events := decodeFrames(t, bobConn.received())
	last := events[len(events)-1]
	if last.Type != EventCursorPosition {
		t.Fatalf("expected %s, got %s", EventCursorPosition, last.Type)
	}
	if last.User == nil || last.User.ID != "alice" {
		t.Errorf("cursor event must carry the sender identity, got %+v", last.User)
	}
	if string(last.Position) != `{"line":3,"ch":14}` {
		t.Errorf("position must pass through untouched, got %s", last.Position)
	}
}

func TestCursorFromDisconnectedSenderHasNullUser(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	bob, _ := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)
	reg.Unregister(bob, "bob-conn")

	p.RouteCursor("doc-1", bob, json.RawMessage(`7`))

	events := decodeFrames(t, aliceConn.received())
	last := events[len(events)-1]
	if last.Type != EventCursorPosition {
		t.Fatalf("cursor from an absent sender must still be sent, got %s", last.Type)
	}
	if last.User != nil {
		t.Errorf("absent sender must yield a null user, got %+v", last.User)
	}
}

func TestCursorWithNoOtherMembersDeliversNothing(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	p.Join("doc-1", alice)
	before := len(aliceConn.received())

	p.RouteCursor("doc-1", alice, json.RawMessage(`1`))

	if len(aliceConn.received()) != before {
		t.Error("no other member means no delivery, and never to self")
	}
}

func TestEmptyDocumentForgottenAndRejoinable(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, _ := connect(reg, "alice")

	p.Join("doc-1", alice)
	p.Leave("doc-1", alice)

	if p.MemberCount("doc-1") != 0 {
		t.Errorf("expected empty membership, got %d", p.MemberCount("doc-1"))
	}
	if len(p.ActiveDocuments()) != 0 {
		t.Errorf("expected no active documents, got %v", p.ActiveDocuments())
	}

	p.Join("doc-1", alice)
	roster := p.Roster("doc-1")
	if !equalIDs(userIDs(roster), "alice") {
		t.Errorf("rejoin after GC must produce a singleton roster, got %v", userIDs(roster))
	}
}

func TestRosterSilentlySkipsDisconnectedUsers(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, _ := connect(reg, "alice")
	bob, _ := connect(reg, "bob")

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)

	// Registry entry vanishes without a presence teardown; the stale
	// membership is filtered from rosters, not treated as an error.
	reg.Unregister(bob, "bob-conn")

	if !equalIDs(userIDs(p.Roster("doc-1")), "alice") {
		t.Errorf("roster must skip users with no live connection, got %v", userIDs(p.Roster("doc-1")))
	}
}

func TestSlowConsumerDoesNotBlockBroadcast(t *testing.T) {
	reg := NewRegistry()
	p := NewPresence(reg)
	alice, aliceConn := connect(reg, "alice")
	bob, bobConn := connect(reg, "bob")
	bobConn.fail = true

	p.Join("doc-1", alice)
	p.Join("doc-1", bob)

	p.RouteChange("doc-1", bob, Change{Content: "x", UserID: bob})

	events := decodeFrames(t, aliceConn.received())
	if events[len(events)-1].Type != EventDocumentUpdated {
		t.Error("a slow member must not prevent delivery to the rest")
	}
}
