package app

import (
	"sync"

	"github.com/dkeye/Pages/internal/core"
	"github.com/dkeye/Pages/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	ConnID  core.ConnID
	Session core.ClientSession
}

// Registry is the single source of truth for which users are connected
// and through which transport connection. At most one entry per user:
// a later login overwrites the mapping without closing the earlier
// transport session.
type Registry struct {
	mu      sync.RWMutex
	entries map[domain.UserID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[domain.UserID]*connEntry)}
}

// Register inserts or replaces the entry for the session's user.
func (r *Registry) Register(connID core.ConnID, sess core.ClientSession) {
	uid := sess.User().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.entries[uid]; ok {
		log.Warn().Str("module", "app.registry").Str("user", string(uid)).Str("old_conn", string(prev.ConnID)).Msg("duplicate login, entry replaced")
	}
	r.entries[uid] = &connEntry{ConnID: connID, Session: sess}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(connID)).Msg("registered connection")
}

// Unregister removes the entry only while connID still owns it, so the
// delayed close of a superseded connection cannot evict its replacement.
// Reports whether the entry was removed.
func (r *Registry) Unregister(uid domain.UserID, connID core.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[uid]
	if !ok || entry.ConnID != connID {
		return false
	}
	delete(r.entries, uid)
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(connID)).Msg("unregistered connection")
	return true
}

// Lookup returns the cached identity for a connected user. Absence is
// not an error; rosters silently skip users that already disconnected.
func (r *Registry) Lookup(uid domain.UserID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[uid]; ok {
		return e.Session.User(), true
	}
	return nil, false
}

func (r *Registry) Session(uid domain.UserID) (core.ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[uid]; ok {
		return e.Session, true
	}
	return nil, false
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
