package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Pages/internal/app"
	"github.com/dkeye/Pages/internal/domain"
)

func (ctl *Controller) handleJoin(uid domain.UserID, conn *wsConn, data []byte) {
	type joinPayload struct {
		Type       string `json:"type"`
		DocumentID string `json:"documentId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.DocumentID == "" {
		ctl.sendError(conn, "empty documentId")
		return
	}

	log.Info().Str("module", "signal").Str("user", string(uid)).Str("doc", p.DocumentID).Msg("join document")
	ctl.Presence.Join(domain.DocumentID(p.DocumentID), uid)
}

// handleLeave drops one document membership; the connection stays open.
func (ctl *Controller) handleLeave(uid domain.UserID, conn *wsConn, data []byte) {
	type leavePayload struct {
		Type       string `json:"type"`
		DocumentID string `json:"documentId"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.DocumentID == "" {
		ctl.sendError(conn, "empty documentId")
		return
	}

	log.Info().Str("module", "signal").Str("user", string(uid)).Str("doc", p.DocumentID).Msg("leave document")
	ctl.Presence.Leave(domain.DocumentID(p.DocumentID), uid)
}

// handleChange forwards an edit verbatim. The payload userId is the
// sender's claim and rides through unchecked; exclusion of the sender
// is keyed on the authenticated connection, not the claim.
func (ctl *Controller) handleChange(uid domain.UserID, conn *wsConn, data []byte) {
	type changePayload struct {
		Type       string `json:"type"`
		DocumentID string `json:"documentId"`
		Content    string `json:"content"`
		Title      string `json:"title"`
		UserID     string `json:"userId"`
	}
	var p changePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad change payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.DocumentID == "" {
		ctl.sendError(conn, "empty documentId")
		return
	}

	ctl.Presence.RouteChange(domain.DocumentID(p.DocumentID), uid, app.Change{
		Content: p.Content,
		Title:   p.Title,
		UserID:  domain.UserID(p.UserID),
	})
}

// handleCursor forwards a cursor move. Sender identity is bound to the
// connection: the registry entry of the authenticated user is attached,
// whatever userId the payload claimed.
func (ctl *Controller) handleCursor(uid domain.UserID, conn *wsConn, data []byte) {
	type cursorPayload struct {
		Type       string          `json:"type"`
		DocumentID string          `json:"documentId"`
		Position   json.RawMessage `json:"position"`
	}
	var p cursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad cursor payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.DocumentID == "" {
		ctl.sendError(conn, "empty documentId")
		return
	}

	ctl.Presence.RouteCursor(domain.DocumentID(p.DocumentID), uid, p.Position)
}
