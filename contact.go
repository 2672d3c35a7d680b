package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/mailer"
	"github.com/shape-portfolio/site/internal/store"
)

type contactRequest struct {
	Name    string `json:"name" form:"name" binding:"required,max=200"`
	Email   string `json:"email" form:"email" binding:"required,email,max=254"`
	Subject string `json:"subject" form:"subject" binding:"required,max=300"`
	Message string `json:"message" form:"message" binding:"required,max=10000"`
}

func (r *contactRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Subject = strings.TrimSpace(r.Subject)
	r.Message = strings.TrimSpace(r.Message)
}

// handleContact stores a contact form submission. htmx and plain form posts
// get an HTML fragment back, everything else JSON.
func (s *server) handleContact(c *gin.Context) {
	html := c.GetHeader("HX-Request") == "true" ||
		c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
	reply := func(status int, msg string, fields gin.H) {
		if html {
			tmpl := "contact-success.html"
			if status >= 400 {
				tmpl = "contact-error.html"
			}
			c.HTML(status, tmpl, gin.H{"message": msg})
			return
		}
		body := gin.H{"success": status < 400}
		if status < 400 {
			body["message"] = msg
		} else {
			body["error"] = msg
		}
		for k, v := range fields {
			body[k] = v
		}
		c.JSON(status, body)
	}

	if s.limited(c, s.contactLimit, "contact:"+s.clientKey(c.ClientIP())) {
		s.metrics.Contact("limited")
		reply(http.StatusTooManyRequests, "Too many messages, please try again later.", nil)
		return
	}

	var req contactRequest
	if err := c.ShouldBind(&req); err != nil {
		s.metrics.Contact("invalid")
		reply(http.StatusBadRequest, "Please fill in every field with a valid email address.", nil)
		return
	}
	req.trim()
	if req.Name == "" || req.Subject == "" || req.Message == "" {
		s.metrics.Contact("invalid")
		reply(http.StatusBadRequest, "Please fill in every field with a valid email address.", nil)
		return
	}

	msg := &store.Message{Name: req.Name, Email: req.Email, Subject: req.Subject, Message: req.Message}
	if err := s.store.CreateMessage(c.Request.Context(), msg); err != nil {
		s.metrics.Contact("failed")
		s.log.Error("storing contact message", zap.Error(err))
		reply(http.StatusInternalServerError, "Sorry, there was an error sending your message. Please try again later.", nil)
		return
	}
	s.metrics.Contact("stored")
	s.log.Info("contact message received", zap.Int64("message_id", msg.ID))

	if to := s.cfg.SMTP.NotifyTo; to != "" && s.mailConfigured() {
		n := mailer.ContactNotification(to, msg.Name, msg.Email, msg.Subject, msg.Message)
		if err := s.mail.Enqueue(n); err != nil {
			s.log.Warn("contact notification not queued", zap.Int64("message_id", msg.ID), zap.Error(err))
		}
	}

	reply(http.StatusOK, ContactThanks, gin.H{"id": msg.ID})
}
