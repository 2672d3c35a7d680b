package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shape-portfolio/site/internal/mailer"
)

var errMailNotConfigured = errors.New("email credentials not configured")

func (s *server) handleListMessages(c *gin.Context) {
	messages, err := s.store.ListMessages(c.Request.Context())
	if err != nil {
		s.storeError(c, "Messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

func (s *server) handleMarkRead(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.store.MarkMessageRead(c.Request.Context(), id); err != nil {
		s.storeError(c, "Message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) handleMarkReplied(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.store.MarkMessageReplied(c.Request.Context(), id); err != nil {
		s.storeError(c, "Message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *server) handleDeleteMessage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteMessage(c.Request.Context(), id); err != nil {
		s.storeError(c, "Message", err)
		return
	}
	s.log.Info("message deleted", zap.Int64("message_id", id))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sendEmailRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
	// MessageID links the reply to an inbox message, which is marked
	// replied once the mail is delivered.
	MessageID int64 `json:"messageId"`
}

// handleSendEmail queues an admin reply and returns without waiting for SMTP.
func (s *server) handleSendEmail(c *gin.Context) {
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "to, subject and message are required")
		return
	}
	m := mailer.Reply(req.MessageID, strings.TrimSpace(req.To), strings.TrimSpace(req.Subject), req.Message)
	if err := s.queueReply(m); err != nil {
		status, msg := statusFor(err)
		respondError(c, status, msg)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email queued for delivery"})
}

// queueReply hands m to the mail workers.
func (s *server) queueReply(m mailer.Mail) error {
	if !s.mailConfigured() {
		return errMailNotConfigured
	}
	if err := s.mail.Enqueue(m); err != nil {
		s.log.Warn("reply not queued", zap.Strings("to", m.To), zap.Error(err))
		return err
	}
	s.metrics.MailQueueDepth.Set(float64(s.mail.Len()))
	return nil
}
