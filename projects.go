package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/store"
)

// handleListProjects lists projects. Anonymous callers only ever see live
// projects; asking for drafts without a token is refused.
func (s *server) handleListProjects(c *gin.Context) {
	status := store.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}
	if !s.isAdmin(c) {
		if status == store.StatusDraft {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		status = store.StatusLive
	}

	projects, err := s.store.ListProjects(c.Request.Context(), status)
	if err != nil {
		s.storeError(c, "Projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": projects})
}

func (s *server) handleGetProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	p, err := s.store.GetProject(c.Request.Context(), id)
	if err == nil && p.Status != store.StatusLive && !s.isAdmin(c) {
		err = store.ErrNotFound
	}
	if err != nil {
		s.storeError(c, "Project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (s *server) handleCreateProject(c *gin.Context) {
	var in store.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid project data")
		return
	}
	p, err := s.store.CreateProject(c.Request.Context(), in)
	if err != nil {
		s.storeError(c, "Project", err)
		return
	}
	s.log.Info("project created", zap.Int64("project_id", p.ID), zap.String("status", string(p.Status)))
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (s *server) handleUpdateProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in store.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid project data")
		return
	}
	p, err := s.store.UpdateProject(c.Request.Context(), id, in)
	if err != nil {
		s.storeError(c, "Project", err)
		return
	}
	s.log.Info("project updated", zap.Int64("project_id", p.ID))
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}

func (s *server) handleDeleteProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.storeError(c, "Project", err)
		return
	}
	s.log.Info("project deleted", zap.Int64("project_id", id))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type statusRequest struct {
	Status store.Status `json:"status"`
}

func (s *server) handleProjectStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	req := statusRequest{Status: store.StatusDraft}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}
	p, err := s.store.SetProjectStatus(c.Request.Context(), id, req.Status)
	if errors.Is(err, store.ErrInvalidStatus) {
		respondError(c, http.StatusBadRequest, "Invalid status")
		return
	}
	if err != nil {
		s.storeError(c, "Project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": p})
}
