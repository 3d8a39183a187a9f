package http

import (
	stdhttp "net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/beaconchat/beacon-server/internal/core"
)

// StatusHandlers serves the introspection endpoint used by external
// health/status tooling.
type StatusHandlers struct {
	hub *core.Hub
}

// NewStatusHandlers creates a status handlers instance.
func NewStatusHandlers(hub *core.Hub) *StatusHandlers {
	return &StatusHandlers{hub: hub}
}

// StatusResponse lists the currently bound user identities and the number
// of active transport sessions.
type StatusResponse struct {
	OnlineUsers    []string `json:"online_users"`
	ActiveSessions int      `json:"active_sessions"`
	Rooms          int      `json:"rooms"`
}

// Status handles GET /api/status.
func (h *StatusHandlers) Status(c *gin.Context) {
	snap := h.hub.Snapshot()
	sort.Strings(snap.BoundUsers)

	c.JSON(stdhttp.StatusOK, StatusResponse{
		OnlineUsers:    snap.BoundUsers,
		ActiveSessions: snap.ActiveSessions,
		Rooms:          snap.Rooms,
	})
}
