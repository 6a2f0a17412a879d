package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storeclerk/internal/workflow"
)

func (s *Server) listWorkflows(c echo.Context) error {
	status := workflow.Status(c.QueryParam("status"))
	if status == "" {
		status = workflow.StatusAwaitingReply
	}

	wfs, err := s.wfSvc.ListByStatus(c.Request().Context(), userID(c), status)
	if err != nil {
		return jsonError(c, err)
	}
	if wfs == nil {
		wfs = []*workflow.Workflow{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"workflows": wfs,
		"count":     len(wfs),
	})
}

func (s *Server) getWorkflow(c echo.Context) error {
	wf, err := s.wfSvc.Get(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}

func (s *Server) listWorkflowEvents(c echo.Context) error {
	events, err := s.wfSvc.Events(c.Request().Context(), userID(c), c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	if events == nil {
		events = []*workflow.Event{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

type replyRequest struct {
	Body string `json:"body"`
}

// workflowReply is the inbound webhook for warehouse replies. The mail
// relay calls it with the raw reply body once it has matched the thread
// to a workflow.
func (s *Server) workflowReply(c echo.Context) error {
	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	// Tenant check first so tenant A cannot post replies into tenant B's
	// workflow even with a valid id.
	if _, err := s.wfSvc.Get(c.Request().Context(), userID(c), c.Param("id")); err != nil {
		return jsonError(c, err)
	}

	wf, err := s.wfSvc.ProcessReply(c.Request().Context(), c.Param("id"), req.Body)
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, wf)
}
