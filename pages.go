package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/store"
)

// gauge is one HUD bar on the project detail view.
type gauge struct {
	Label string
	Value store.Percent
}

// gallery is the image viewer state for one project.
type gallery struct {
	Images  []string
	Index   int
	Current string
	Prev    int
	Next    int
}

// newGallery selects image idx, wrapping around in both directions.
func newGallery(images []string, idx int) gallery {
	n := len(images)
	if n == 0 {
		return gallery{}
	}
	idx = ((idx % n) + n) % n
	return gallery{
		Images:  images,
		Index:   idx,
		Current: images[idx],
		Prev:    (idx - 1 + n) % n,
		Next:    (idx + 1) % n,
	}
}

func hudBars(v store.StatusValues) []gauge {
	return []gauge{
		{Label: "Stability", Value: v.Stability},
		{Label: "Range", Value: v.Range},
		{Label: "Reliability", Value: v.Reliability},
	}
}

// liveProjects reads live projects, falling back to the built-in set when
// the store errors or has nothing published.
func (s *server) liveProjects(ctx context.Context) ([]store.Project, bool) {
	projects, err := s.store.ListProjects(ctx, store.StatusLive)
	if err != nil {
		s.log.Warn("loading projects, using fallback set", zap.Error(err))
		return fallbackProjects, true
	}
	if len(projects) == 0 {
		return fallbackProjects, true
	}
	return projects, false
}

func (s *server) setupPageRoutes(r *gin.Engine) {
	r.GET("/", s.handleHome)
	r.GET("/projects", s.handleProjectsPage)
	r.GET("/projects/:id", s.handleProjectPage)
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			respondError(c, http.StatusNotFound, "Not found")
			return
		}
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{"title": "Not Found"})
	})
}

func (s *server) handleHome(c *gin.Context) {
	ctx := c.Request.Context()
	skills, err := s.store.ListSkills(ctx)
	if err != nil {
		s.log.Warn("loading skills for home page", zap.Error(err))
		skills = nil
	}
	projects, fallback := s.liveProjects(ctx)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"title":        "Home",
		"heroTitle":    HeroTitle,
		"heroTagline":  HeroTagline,
		"aboutMe":      AboutMe,
		"contactIntro": ContactIntro,
		"skills":       skills,
		"projects":     projects,
		"fallback":     fallback,
	})
}

func (s *server) handleProjectsPage(c *gin.Context) {
	projects, fallback := s.liveProjects(c.Request.Context())
	c.HTML(http.StatusOK, "projects.html", gin.H{
		"title":    "Projects",
		"projects": projects,
		"fallback": fallback,
	})
}

// handleProjectPage renders one project. Drafts are only shown to the admin.
// Ids the store cannot produce resolve against the built-in set.
func (s *server) handleProjectPage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{"title": "Not Found"})
		return
	}

	var project store.Project
	p, err := s.store.GetProject(c.Request.Context(), id)
	switch {
	case err == nil && (p.Status == store.StatusLive || s.isAdmin(c)):
		project = *p
	case err == nil:
		c.HTML(http.StatusNotFound, "not-found.html", gin.H{"title": "Not Found"})
		return
	default:
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("loading project, trying fallback set", zap.Int64("project_id", id), zap.Error(err))
		}
		fb, ok := fallbackProject(id)
		if !ok {
			c.HTML(http.StatusNotFound, "not-found.html", gin.H{"title": "Not Found"})
			return
		}
		project = fb
	}

	idx, _ := strconv.Atoi(c.Query("img"))
	brief, err := s.md.Render(project.MissionBrief)
	if err != nil {
		s.log.Warn("rendering mission brief", zap.Int64("project_id", id), zap.Error(err))
		brief = template.HTML(template.HTMLEscapeString(project.MissionBrief))
	}

	c.HTML(http.StatusOK, "project.html", gin.H{
		"title":   project.Name,
		"project": project,
		"brief":   brief,
		"gallery": newGallery(project.Images, idx),
		"gauges":  hudBars(project.StatusValues),
	})
}
