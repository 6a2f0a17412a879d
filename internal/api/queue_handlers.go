package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storeclerk/pkg/models"
)

// listQueue returns pending items by default; ?status=completed returns
// the executed and rejected ones.
func (s *Server) listQueue(c echo.Context) error {
	var (
		items []*models.ApprovalQueueItem
		err   error
	)
	switch c.QueryParam("status") {
	case "", "pending":
		items, err = s.queueSvc.ListPending(c.Request().Context(), userID(c))
	case "completed":
		items, err = s.queueSvc.ListCompleted(c.Request().Context(), userID(c))
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status must be pending or completed"})
	}
	if err != nil {
		return jsonError(c, err)
	}
	if items == nil {
		items = []*models.ApprovalQueueItem{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) enqueue(c echo.Context) error {
	var input models.ClassificationInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	item, err := s.queueSvc.Enqueue(c.Request().Context(), userID(c), input)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) getQueueItem(c echo.Context) error {
	item, err := s.queueSvc.Get(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

type reviewRequest struct {
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
	NewText  string `json:"new_text"`
}

func (s *Server) approveItem(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	item, err := s.queueSvc.Approve(c.Request().Context(), userID(c), c.Param("id"), req.Reviewer)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) rejectItem(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	item, err := s.queueSvc.Reject(c.Request().Context(), userID(c), c.Param("id"), req.Reviewer, req.Reason)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) editItem(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	item, err := s.queueSvc.Edit(c.Request().Context(), userID(c), c.Param("id"), req.Reviewer, req.NewText)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

func (s *Server) retryItem(c echo.Context) error {
	item, err := s.queueSvc.Retry(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}
