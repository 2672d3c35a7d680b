package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shape-portfolio/site/internal/store"
)

func (s *server) handleListSkills(c *gin.Context) {
	skills, err := s.store.ListSkills(c.Request.Context())
	if err != nil {
		s.storeError(c, "Skills", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "skills": skills})
}

func (s *server) handleCreateSkill(c *gin.Context) {
	var in store.SkillInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid skill data")
		return
	}
	sk, err := s.store.CreateSkill(c.Request.Context(), in)
	if err != nil {
		s.storeError(c, "Skill", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "skill": sk})
}

func (s *server) handleUpdateSkill(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var in store.SkillInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid skill data")
		return
	}
	sk, err := s.store.UpdateSkill(c.Request.Context(), id, in)
	if err != nil {
		s.storeError(c, "Skill", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "skill": sk})
}

func (s *server) handleDeleteSkill(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteSkill(c.Request.Context(), id); err != nil {
		s.storeError(c, "Skill", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
