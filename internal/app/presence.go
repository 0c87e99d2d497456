package app

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Pages/internal/core"
	"github.com/dkeye/Pages/internal/domain"
	"github.com/rs/zerolog/log"
)

// docMembers keeps membership both as a set and in join order, because
// rosters are rendered in the order users joined.
type docMembers struct {
	order []domain.UserID
	set   map[domain.UserID]struct{}
}

func (m *docMembers) add(uid domain.UserID) bool {
	if _, ok := m.set[uid]; ok {
		return false
	}
	m.set[uid] = struct{}{}
	m.order = append(m.order, uid)
	return true
}

func (m *docMembers) remove(uid domain.UserID) bool {
	if _, ok := m.set[uid]; !ok {
		return false
	}
	delete(m.set, uid)
	for i, id := range m.order {
		if id == uid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// DocumentPresence is a read-only view for APIs.
type DocumentPresence struct {
	DocumentID  domain.DocumentID `json:"documentId"`
	MemberCount int               `json:"memberCount"`
}

// Presence tracks per-document membership and fans events out to the
// registered connection of every member. A single mutex covers each
// operation end to end, so every join/leave/route runs as one atomic
// step and per-document event order matches processing order.
type Presence struct {
	mu       sync.Mutex
	registry *Registry
	docs     map[domain.DocumentID]*docMembers
}

func NewPresence(registry *Registry) *Presence {
	return &Presence{
		registry: registry,
		docs:     make(map[domain.DocumentID]*docMembers),
	}
}

// Join adds the user to the document's membership, creating it on first
// join, and broadcasts the updated roster to the joiner and every other
// member. Joining twice is fine; the roster is rebroadcast either way.
func (p *Presence) Join(docID domain.DocumentID, uid domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	members, ok := p.docs[docID]
	if !ok {
		members = &docMembers{set: make(map[domain.UserID]struct{})}
		p.docs[docID] = members
	}
	members.add(uid)
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("doc", string(docID)).Int("members", len(members.set)).Msg("joined document")

	p.broadcastLocked(docID, "", RosterEvent{
		Type:       EventUserJoined,
		DocumentID: docID,
		Users:      p.rosterLocked(docID),
	})
}

// Leave removes the user from one document and notifies the remaining
// members. The departing user gets nothing; empty memberships are
// discarded so state stays bounded by active documents.
func (p *Presence) Leave(docID domain.DocumentID, uid domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leaveLocked(docID, uid)
}

// Disconnect unwinds every document membership the user holds. It is
// idempotent: a second call finds nothing left to remove.
func (p *Presence) Disconnect(uid domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for docID, members := range p.docs {
		if _, ok := members.set[uid]; ok {
			p.leaveLocked(docID, uid)
		}
	}
}

func (p *Presence) leaveLocked(docID domain.DocumentID, uid domain.UserID) {
	members, ok := p.docs[docID]
	if !ok || !members.remove(uid) {
		return
	}
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("doc", string(docID)).Int("members", len(members.set)).Msg("left document")

	if len(members.set) == 0 {
		delete(p.docs, docID)
		return
	}
	p.broadcastLocked(docID, uid, RosterEvent{
		Type:       EventUserLeft,
		DocumentID: docID,
		Users:      p.rosterLocked(docID),
	})
}

// RouteChange forwards a document edit to every member except the
// sender. The change body is pass-through: its claimed userId is not
// cross-checked, and the sender need not be a member for existing
// members to hear about it.
func (p *Presence) RouteChange(docID domain.DocumentID, sender domain.UserID, change Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.broadcastLocked(docID, sender, DocumentUpdatedEvent{
		Type:       EventDocumentUpdated,
		DocumentID: docID,
		Content:    change.Content,
		Title:      change.Title,
		UserID:     change.UserID,
	})
}

// RouteCursor forwards a cursor move to every member except the sender,
// with the sender's registry identity attached. An already-disconnected
// sender yields a null user rather than a suppressed event.
func (p *Presence) RouteCursor(docID domain.DocumentID, sender domain.UserID, position json.RawMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, _ := p.registry.Lookup(sender)
	p.broadcastLocked(docID, sender, CursorEvent{
		Type:       EventCursorPosition,
		DocumentID: docID,
		Position:   position,
		UserID:     sender,
		User:       user,
	})
}

// Roster returns the document's participants in join order, skipping
// any member whose connection is already gone.
func (p *Presence) Roster(docID domain.DocumentID) []domain.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rosterLocked(docID)
}

func (p *Presence) MemberCount(docID domain.DocumentID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if members, ok := p.docs[docID]; ok {
		return len(members.set)
	}
	return 0
}

func (p *Presence) ActiveDocuments() []DocumentPresence {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DocumentPresence, 0, len(p.docs))
	for docID, members := range p.docs {
		out = append(out, DocumentPresence{DocumentID: docID, MemberCount: len(members.set)})
	}
	return out
}

func (p *Presence) rosterLocked(docID domain.DocumentID) []domain.User {
	members, ok := p.docs[docID]
	if !ok {
		return []domain.User{}
	}
	out := make([]domain.User, 0, len(members.order))
	for _, uid := range members.order {
		if user, ok := p.registry.Lookup(uid); ok {
			out = append(out, *user)
		}
	}
	return out
}

// broadcastLocked marshals once and delivers to the current connection
// of every member except skip. Delivery is best effort: members without
// a live connection are skipped, slow consumers drop the frame.
func (p *Presence) broadcastLocked(docID domain.DocumentID, skip domain.UserID, v any) {
	members, ok := p.docs[docID]
	if !ok {
		return
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.presence").Str("doc", string(docID)).Msg("marshal event")
		return
	}
	sent := 0
	for _, uid := range members.order {
		if uid == skip {
			continue
		}
		sess, ok := p.registry.Session(uid)
		if !ok {
			continue
		}
		if err := sess.Signal().TrySend(core.Frame(frame)); err != nil {
			log.Warn().Err(err).Str("module", "app.presence").Str("user", string(uid)).Str("doc", string(docID)).Msg("dropped event")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.presence").Str("doc", string(docID)).Int("sent_to", sent).Msg("broadcast")
}
