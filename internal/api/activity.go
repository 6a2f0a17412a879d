package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/storeclerk/internal/audit"
)

// listActivity handles the API endpoint for fetching recent activity log
// entries, newest first.
func (s *Server) listActivity(c echo.Context) error {
	limit := 20 // default
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	entries, err := s.auditStore.List(c.Request().Context(), userID(c), limit)
	if err != nil {
		return jsonError(c, err)
	}
	if entries == nil {
		entries = []*audit.ActivityLogEntry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
