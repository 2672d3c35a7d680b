// admin.go - admin session, privacy-conscious visitor tracking and the dashboard
package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/auth"
	"github.com/shape-portfolio/site/internal/mailer"
	"github.com/shape-portfolio/site/internal/store"
)

const adminCookie = "admin_token"

// AdminStats feeds the dashboard counters and GET /api/admin/stats.
type AdminStats struct {
	TotalMessages  int64 `json:"total_messages"`
	UnreadMessages int64 `json:"unread_messages"`
	LiveProjects   int64 `json:"live_projects"`
	DraftProjects  int64 `json:"draft_projects"`
	Skills         int64 `json:"skills"`
	store.VisitorStats
	RecentVisitors []store.Visit `json:"recent_visitors"`
	MailConfigured bool          `json:"mail_configured"`
	MailQueued     int           `json:"mail_queued"`
}

func generateSalt() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating hashing salt: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Hash IP address for privacy compliance (consistent per IP for one process)
func (s *server) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + s.hashingSalt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

// clientKey names a client in the rate limiters. Every instance configured
// with the same admin.secret derives the same key for an IP.
func (s *server) clientKey(ip string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.Admin.Secret))
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// requestToken finds an admin token in the headers or the session cookie.
func requestToken(c *gin.Context) string {
	if t := auth.ExtractToken(c.GetHeader("Authorization"), c.GetHeader("X-Auth-Token")); t != "" {
		return t
	}
	t, _ := c.Cookie(adminCookie)
	return t
}

// isAdmin verifies the request token once and caches the answer.
func (s *server) isAdmin(c *gin.Context) bool {
	if v, ok := c.Get("admin"); ok {
		return v.(bool)
	}
	ok := false
	if t := requestToken(c); t != "" {
		_, err := s.auth.Verify(t)
		ok = err == nil
	}
	c.Set("admin", ok)
	return ok
}

// optionalAdmin marks the request as admin when a valid token is present,
// without rejecting anonymous callers.
func (s *server) optionalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.isAdmin(c)
		c.Next()
	}
}

// requireAdminAPI rejects API calls without a valid token.
func (s *server) requireAdminAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.isAdmin(c) {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Next()
	}
}

// requireAdminPage sends anonymous browsers to the login form.
func (s *server) requireAdminPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.isAdmin(c) {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *server) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookie, token, maxAge, "/", "", s.cfg.Admin.SecureCookie, true)
}

// login checks credentials under the login rate limit and issues a token.
// It answers the failure itself and returns ok=false.
func (s *server) login(c *gin.Context, username, password string, fail func(status int, msg string)) (string, time.Time, bool) {
	client := s.hashIP(c.ClientIP())
	if s.limited(c, s.loginLimit, "login:"+s.clientKey(c.ClientIP())) {
		fail(http.StatusTooManyRequests, "Too many login attempts, try again later")
		return "", time.Time{}, false
	}

	if !s.auth.CheckCredentials(username, password) {
		s.log.Warn("failed admin login attempt", zap.String("client", client))
		fail(http.StatusUnauthorized, "Invalid credentials")
		return "", time.Time{}, false
	}
	token, expires, err := s.auth.IssueToken()
	if err != nil {
		s.log.Error("issuing admin token", zap.Error(err))
		fail(http.StatusInternalServerError, "Could not start session")
		return "", time.Time{}, false
	}
	s.setSessionCookie(c, token, int(time.Until(expires).Seconds()))
	s.log.Info("admin login successful", zap.String("client", client))
	return token, expires, true
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (s *server) handleAPILogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Username and password are required")
		return
	}
	token, expires, ok := s.login(c, req.Username, req.Password, func(status int, msg string) {
		respondError(c, status, msg)
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "expiresAt": expires})
}

func (s *server) handleAPILogout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Privacy-conscious visitor tracking middleware
func (s *server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !s.cfg.Visitors.Enabled || c.Request.Method != http.MethodGet || untrackedPath(path) {
			c.Next()
			return
		}

		// Respect Do Not Track header
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		hashed, ua := s.hashIP(c.ClientIP()), c.Request.UserAgent()
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.store.RecordVisit(ctx, hashed, ua, path); err != nil {
				s.log.Warn("recording visitor", zap.Error(err))
			}
		}()
		c.Next()
	}
}

func retentionText(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return strconv.Itoa(days) + " days"
}

func untrackedPath(path string) bool {
	for _, prefix := range []string{"/static/", "/image/", "/admin", "/api/", "/metrics", "/favicon", "/privacy"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// purgeOldVisits drops visitor rows older than the retention period.
func (s *server) purgeOldVisits(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Visitors.Retention)
	n, err := s.store.PurgeVisitsBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("cleaning up old visitor data", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("privacy cleanup removed visitor records",
			zap.Int64("rows", n), zap.Duration("retention", s.cfg.Visitors.Retention))
	}
}

func (s *server) adminStats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{MailConfigured: s.mailConfigured(), MailQueued: s.mail.Len()}
	var err error

	if stats.TotalMessages, stats.UnreadMessages, err = s.store.MessageCounts(ctx); err != nil {
		return nil, err
	}
	if stats.LiveProjects, stats.DraftProjects, err = s.store.ProjectCounts(ctx); err != nil {
		return nil, err
	}
	if stats.Skills, err = s.store.CountSkills(ctx); err != nil {
		return nil, err
	}
	visitors, err := s.store.VisitorStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.VisitorStats = *visitors
	if stats.RecentVisitors, err = s.store.RecentVisits(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *server) handleAdminStats(c *gin.Context) {
	stats, err := s.adminStats(c.Request.Context())
	if err != nil {
		s.storeError(c, "Statistics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// Setup all admin page routes
func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"retention": retentionText(s.cfg.Visitors.Retention),
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		if s.isAdmin(c) {
			c.Redirect(http.StatusFound, "/admin")
			return
		}
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		_, _, ok := s.login(c, c.PostForm("username"), c.PostForm("password"), func(status int, msg string) {
			c.HTML(status, "admin-login.html", gin.H{"title": "Admin Login", "error": msg})
		})
		if ok {
			c.Redirect(http.StatusFound, "/admin")
		}
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		s.setSessionCookie(c, "", -1)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin", s.requireAdminPage())

	admin.GET("", s.handleDashboard)
	admin.GET("/dashboard", func(c *gin.Context) { c.Redirect(http.StatusMovedPermanently, "/admin") })

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := s.adminStats(c.Request.Context())
		if err != nil {
			s.storeError(c, "Statistics", err)
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		c.JSON(http.StatusOK, stats)
	})

	admin.POST("/privacy/purge", func(c *gin.Context) {
		s.purgeOldVisits(c.Request.Context())
		redirectNotice(c, "Visitor records past retention were removed")
	})

	admin.POST("/messages/:id/read", s.formAction("Message marked as read", func(c *gin.Context, id int64) error {
		return s.store.MarkMessageRead(c.Request.Context(), id)
	}))
	admin.POST("/messages/:id/replied", s.formAction("Message marked as replied", func(c *gin.Context, id int64) error {
		return s.store.MarkMessageReplied(c.Request.Context(), id)
	}))
	admin.POST("/messages/:id/delete", s.formAction("Message deleted", func(c *gin.Context, id int64) error {
		return s.store.DeleteMessage(c.Request.Context(), id)
	}))
	admin.POST("/messages/:id/reply", s.formAction("Reply queued", func(c *gin.Context, id int64) error {
		msg, err := s.store.GetMessage(c.Request.Context(), id)
		if err != nil {
			return err
		}
		subject := strings.TrimSpace(c.PostForm("subject"))
		if subject == "" {
			subject = "Re: " + msg.Subject
		}
		return s.queueReply(mailer.Reply(msg.ID, msg.Email, subject, c.PostForm("message")))
	}))

	admin.GET("/projects/new", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-project-form.html", gin.H{
			"title":   "New Project",
			"project": store.Project{Status: store.StatusDraft},
		})
	})
	admin.POST("/projects", func(c *gin.Context) {
		in := projectFromForm(c)
		p, err := s.store.CreateProject(c.Request.Context(), in)
		if err != nil {
			s.renderProjectForm(c, "New Project", store.Project{}, in, err)
			return
		}
		redirectNotice(c, "Project "+strconv.Quote(p.Name)+" created")
	})
	admin.GET("/projects/:id/edit", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			redirectNotice(c, "Invalid project id")
			return
		}
		p, err := s.store.GetProject(c.Request.Context(), id)
		if err != nil {
			redirectNotice(c, "Project not found")
			return
		}
		c.HTML(http.StatusOK, "admin-project-form.html", gin.H{"title": "Edit Project", "project": p})
	})
	admin.POST("/projects/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			redirectNotice(c, "Invalid project id")
			return
		}
		in := projectFromForm(c)
		if _, err := s.store.UpdateProject(c.Request.Context(), id, in); err != nil {
			s.renderProjectForm(c, "Edit Project", store.Project{ID: id}, in, err)
			return
		}
		redirectNotice(c, "Project updated")
	})
	admin.POST("/projects/:id/status", s.formAction("Project status updated", func(c *gin.Context, id int64) error {
		_, err := s.store.SetProjectStatus(c.Request.Context(), id, store.Status(c.PostForm("status")))
		return err
	}))
	admin.POST("/projects/:id/delete", s.formAction("Project deleted", func(c *gin.Context, id int64) error {
		return s.store.DeleteProject(c.Request.Context(), id)
	}))

	admin.POST("/skills", func(c *gin.Context) {
		name, pct := c.PostForm("name"), store.ParsePercent(c.PostForm("percentage"))
		if _, err := s.store.CreateSkill(c.Request.Context(), store.SkillInput{Name: &name, Percentage: &pct}); err != nil {
			_, msg := statusFor(err)
			redirectNotice(c, "Could not add skill: "+msg)
			return
		}
		redirectNotice(c, "Skill added")
	})
	admin.POST("/skills/:id/delete", s.formAction("Skill deleted", func(c *gin.Context, id int64) error {
		return s.store.DeleteSkill(c.Request.Context(), id)
	}))
}

func (s *server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := s.adminStats(ctx)
	if err != nil {
		s.log.Error("loading admin stats", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
		return
	}
	messages, err := s.store.ListMessages(ctx)
	if err != nil {
		s.log.Error("loading messages", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load messages"})
		return
	}
	projects, err := s.store.ListProjects(ctx, "")
	if err != nil {
		s.log.Error("loading projects", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load projects"})
		return
	}
	skills, err := s.store.ListSkills(ctx)
	if err != nil {
		s.log.Error("loading skills", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load skills"})
		return
	}

	c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
		"title":    "Dashboard",
		"notice":   c.Query("notice"),
		"stats":    stats,
		"messages": messages,
		"projects": projects,
		"skills":   skills,
	})
}

// formAction wraps a dashboard form post on /:id and redirects back to the
// dashboard with a notice.
func (s *server) formAction(done string, fn func(c *gin.Context, id int64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			redirectNotice(c, "Invalid id")
			return
		}
		if err := fn(c, id); err != nil {
			status, msg := statusFor(err)
			if status >= 500 {
				s.log.Error("admin action failed", zap.String("path", c.FullPath()), zap.Int64("id", id), zap.Error(err))
			}
			redirectNotice(c, "Action failed: "+msg)
			return
		}
		s.log.Info("admin action", zap.String("path", c.FullPath()), zap.Int64("id", id))
		redirectNotice(c, done)
	}
}

func redirectNotice(c *gin.Context, notice string) {
	c.Redirect(http.StatusSeeOther, "/admin?notice="+url.QueryEscape(notice))
}

// projectFromForm reads the dashboard project form. Stack is comma separated,
// images one per line.
func projectFromForm(c *gin.Context) store.ProjectInput {
	field := func(name string) *string {
		v := strings.TrimSpace(c.PostForm(name))
		return &v
	}
	percent := func(name string) *store.Percent {
		p := store.ParsePercent(c.PostForm(name))
		return &p
	}
	stack := strings.Split(c.PostForm("stack"), ",")
	var images []string
	for _, line := range strings.Split(c.PostForm("images"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			images = append(images, line)
		}
	}
	if images == nil {
		images = []string{}
	}
	status := store.Status(c.DefaultPostForm("status", string(store.StatusDraft)))
	architecture := c.PostForm("architecture")

	return store.ProjectInput{
		Name:         field("name"),
		Mission:      field("mission"),
		MissionBrief: field("missionBrief"),
		Architecture: &architecture,
		Stack:        &stack,
		Images:       &images,
		LinkedInLink: field("linkedInLink"),
		ReportFile:   field("reportFile"),
		Stability:    percent("stability"),
		Range:        percent("range"),
		Reliability:  percent("reliability"),
		Status:       &status,
	}
}

// renderProjectForm redisplays a rejected project form with what was typed.
func (s *server) renderProjectForm(c *gin.Context, title string, p store.Project, in store.ProjectInput, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		s.log.Error("saving project", zap.Error(err))
	}
	if status == http.StatusNotFound {
		msg = "Project not found"
	}
	p.Name, p.Mission, p.MissionBrief = *in.Name, *in.Mission, *in.MissionBrief
	p.Architecture, p.LinkedInLink, p.ReportFile = *in.Architecture, *in.LinkedInLink, *in.ReportFile
	p.Stack, p.Images, p.Status = *in.Stack, *in.Images, *in.Status
	p.StatusValues = store.StatusValues{Stability: *in.Stability, Range: *in.Range, Reliability: *in.Reliability}
	c.HTML(status, "admin-project-form.html", gin.H{"title": title, "project": p, "error": msg})
}
