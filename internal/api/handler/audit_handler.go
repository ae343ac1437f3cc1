package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/ports"
)

// AuditHandler serves the authentication audit trail to admin surfaces.
// history may be nil when the gateway runs without its audit store.
type AuditHandler struct {
	history ports.AuditHistory
	log     zerolog.Logger
}

func NewAuditHandler(history ports.AuditHistory, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{history: history, log: log}
}

type auditTrailResponse struct {
	UserID string              `json:"userId"`
	Events []domain.AuditEvent `json:"events"`
}

// RecentForUser lists the latest audit events for one user, newest first.
//
// @Summary      Audit trail for a user
// @Tags         admin
// @Produce      json
// @Param        user_id  query     string  true   "User to inspect"
// @Param        limit    query     int     false  "Max events, default 50"
// @Success      200      {object}  auditTrailResponse
// @Failure      400      {object}  map[string]string
// @Failure      503      {object}  map[string]string
// @Router       /admin/audit [get]
func (h *AuditHandler) RecentForUser(c echo.Context) error {
	if h.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "audit trail is not configured")
	}

	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)

	events, err := h.history.RecentForUser(c.Request().Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("audit trail lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "audit trail lookup failed")
	}
	if events == nil {
		events = []domain.AuditEvent{}
	}
	return c.JSON(http.StatusOK, auditTrailResponse{UserID: userID, Events: events})
}
