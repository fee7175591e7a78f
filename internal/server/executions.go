package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiinpocket/n3n/editor/internal/client"
	"github.com/aiinpocket/n3n/editor/internal/editor"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

var (
	ErrStartExecution = errors.New("failed to start execution")
	ErrStopExecution  = errors.New("failed to stop execution")
)

func (s *Server) startExecution(c *gin.Context) {
	flowID, ok := s.flowParam(c)
	if !ok {
		return
	}

	sess, err := s.Session(c.Request.Context(), flowID)
	if err != nil {
		internalError(c, ErrStartExecution, err)
		return
	}

	executionID, err := sess.StartExecution(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, client.ErrEngineUnavailable):
			c.JSON(http.StatusBadGateway, api.ErrorResponse{
				Error:  err.Error(),
				Status: http.StatusBadGateway,
			})
		case errors.Is(err, client.ErrEngineRejected):
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
				Error:  err.Error(),
				Status: http.StatusUnprocessableEntity,
			})
		default:
			internalError(c, ErrStartExecution, err)
		}
		return
	}

	s.trackExecution(executionID, flowID)
	c.JSON(http.StatusCreated, api.ExecutionStartedResponse{
		ExecutionID: executionID,
		FlowID:      flowID,
	})
}

func (s *Server) stopExecution(c *gin.Context) {
	executionID := api.ExecutionID(c.Param("executionID"))

	sess, ok := s.executionSession(executionID)
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrExecutionOwner, executionID),
			Status: http.StatusNotFound,
		})
		return
	}

	if err := sess.StopExecution(c.Request.Context()); err != nil {
		if errors.Is(err, editor.ErrNotExecuting) {
			c.JSON(http.StatusConflict, api.ErrorResponse{
				Error:  err.Error(),
				Status: http.StatusConflict,
			})
			return
		}
		internalError(c, ErrStopExecution, err)
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("Execution stopped: %s", executionID),
	})
}

// exitExecution leaves execution mode for the session that started or
// resumed the execution, clearing its overlay and re-enabling edits.
// Distinct from stop: the remote execution keeps running if it still is
func (s *Server) exitExecution(c *gin.Context) {
	executionID := api.ExecutionID(c.Param("executionID"))

	sess, ok := s.executionSession(executionID)
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrExecutionOwner, executionID),
			Status: http.StatusNotFound,
		})
		return
	}

	sess.ExitExecutionMode()
	s.untrackExecution(executionID)
	c.JSON(http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("Execution overlay closed: %s", executionID),
	})
}

func (s *Server) executionSession(
	id api.ExecutionID,
) (*editor.Session, bool) {
	flowID, ok := s.executionFlow(id)
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[flowID]
	return sess, ok
}
