package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiinpocket/n3n/editor/internal/editor"
	"github.com/aiinpocket/n3n/editor/internal/persist"
	"github.com/aiinpocket/n3n/editor/pkg/api"
)

var (
	ErrGetFlow        = errors.New("failed to get flow")
	ErrListVersions   = errors.New("failed to list versions")
	ErrSaveVersion    = errors.New("failed to save version")
	ErrPublishVersion = errors.New("failed to publish version")
)

func (s *Server) getFlow(c *gin.Context) {
	flowID, ok := s.flowParam(c)
	if !ok {
		return
	}

	if label := c.Query("version"); label != "" {
		s.getFlowVersion(c, flowID, label)
		return
	}

	sess, err := s.Session(c.Request.Context(), flowID)
	if err != nil {
		internalError(c, ErrGetFlow, err)
		return
	}

	res := api.FlowResponse{
		Definition: sess.Snapshot(),
		FlowID:     flowID,
	}
	if pub, err := s.store.GetPublished(
		c.Request.Context(), flowID,
	); err == nil {
		res.PublishedVersion = pub.Version
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) getFlowVersion(
	c *gin.Context, flowID api.FlowID, label string,
) {
	v, err := s.store.Get(c.Request.Context(), flowID, label)
	if err == nil {
		c.JSON(http.StatusOK, api.FlowResponse{
			Definition: v.Definition,
			FlowID:     flowID,
			Version:    v.Version,
		})
		return
	}

	if errors.Is(err, persist.ErrVersionNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), label),
			Status: http.StatusNotFound,
		})
		return
	}
	internalError(c, ErrGetFlow, err)
}

func (s *Server) listVersions(c *gin.Context) {
	flowID, ok := s.flowParam(c)
	if !ok {
		return
	}

	versions, err := s.store.List(c.Request.Context(), flowID)
	if err != nil {
		internalError(c, ErrListVersions, err)
		return
	}

	c.JSON(http.StatusOK, api.VersionListResponse{
		Versions: versions,
		Count:    len(versions),
	})
}

func (s *Server) saveVersion(c *gin.Context) {
	flowID, ok := s.flowParam(c)
	if !ok {
		return
	}

	var req api.SaveVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	sess, err := s.Session(c.Request.Context(), flowID)
	if err != nil {
		internalError(c, ErrSaveVersion, err)
		return
	}

	// An explicit definition replaces the session's graph before the
	// save, so detached clients can save without replaying edits. A
	// malformed definition is a client error; only an active execution
	// makes the save conflict
	if req.Definition != nil {
		if err := sess.ReplaceDefinition(req.Definition); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, editor.ErrExecutionActive) {
				status = http.StatusConflict
			}
			c.JSON(status, api.ErrorResponse{
				Error:  err.Error(),
				Status: status,
			})
			return
		}
	}

	v, err := sess.SaveVersion(c.Request.Context(), req.Version)
	if err == nil {
		c.JSON(http.StatusCreated, v)
		return
	}

	switch {
	case errors.Is(err, persist.ErrVersionExists):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusConflict,
		})
	case errors.Is(err, api.ErrInvalidVersionLabel):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusBadRequest,
		})
	default:
		internalError(c, ErrSaveVersion, err)
	}
}

func (s *Server) publishVersion(c *gin.Context) {
	flowID, ok := s.flowParam(c)
	if !ok {
		return
	}
	label := c.Param("version")

	sess, err := s.Session(c.Request.Context(), flowID)
	if err != nil {
		internalError(c, ErrPublishVersion, err)
		return
	}

	v, err := sess.PublishVersion(c.Request.Context(), label)
	if err == nil {
		c.JSON(http.StatusOK, v)
		return
	}

	switch {
	case errors.Is(err, persist.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", err.Error(), label),
			Status: http.StatusNotFound,
		})
	case errors.Is(err, persist.ErrAlreadyPublished):
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusConflict,
		})
	default:
		internalError(c, ErrPublishVersion, err)
	}
}

func (s *Server) validateFlow(c *gin.Context) {
	flowID, ok := s.flowParam(c)
	if !ok {
		return
	}

	var def api.FlowDefinition
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&def); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{
				Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
				Status: http.StatusBadRequest,
			})
			return
		}
		c.JSON(http.StatusOK, editor.Validate(&def))
		return
	}

	sess, err := s.Session(c.Request.Context(), flowID)
	if err != nil {
		internalError(c, ErrGetFlow, err)
		return
	}
	c.JSON(http.StatusOK, sess.Validate())
}
