package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/messaging"
	"github.com/CauaCamp0s/Discord-Messaging-Service/internal/tabular"
	"github.com/CauaCamp0s/Discord-Messaging-Service/pkg/logx"
)

// maxUploadBytes bounds bulk uploads before any parsing happens.
const maxUploadBytes = 10 << 20

type sendMessageRequest struct {
	// UsernameOrID wins over the split fields when present; it is classified
	// by the 17-19 digit identifier rule.
	UsernameOrID string `json:"usernameOrId"`
	Username     string `json:"username"`
	UserID       string `json:"userId"`
	Message      string `json:"message"`
}

func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Discord Messaging Service is running")
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.state()
	code := http.StatusOK
	if st != messaging.StateReady {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"state": st.String()})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var body sendMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	req := messaging.Request{Text: body.Message}
	switch {
	case strings.TrimSpace(body.UsernameOrID) != "":
		ref := strings.TrimSpace(body.UsernameOrID)
		if messaging.Classify(ref) == messaging.RefIdentifier {
			req.UserID = ref
		} else {
			req.DisplayName = ref
		}
	case strings.TrimSpace(body.UserID) != "":
		req.UserID = strings.TrimSpace(body.UserID)
	case strings.TrimSpace(body.Username) != "":
		req.DisplayName = strings.TrimSpace(body.Username)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, userId or usernameOrId is required"})
		return
	}

	res, err := s.sender.Dispatch(c.Request.Context(), req)
	if err != nil {
		s.renderDispatchError(c, err)
		return
	}

	userID := res.UserID
	if userID == "" {
		userID = req.UserID
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "message sent",
		"username": res.DisplayName,
		"userId":   userID,
	})
}

func (s *Server) handleSendBulk(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	text := c.PostForm("message")
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	// Suffix gate before any bytes reach the parser.
	format, ok := tabular.FormatForFilename(fh.Filename)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file format; use .xlsx, .xls or .csv"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil || len(data) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}

	refs, err := tabular.Parse(data, format)
	if err != nil {
		var pe *tabular.ParseError
		if errors.As(err, &pe) {
			c.JSON(http.StatusBadRequest, gin.H{"error": pe.Detail, "reason": string(pe.Reason)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.log.Info("bulk upload accepted",
		logx.String("file", fh.Filename),
		logx.Int("recipients", len(refs)))

	report := s.bulk.Run(c.Request.Context(), refs, text)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("processing finished: %d sent, %d failed", report.Succeeded, report.Failed),
		"results": report,
	})
}

// renderDispatchError maps the closed dispatch taxonomy onto HTTP statuses.
// Detail text is surfaced verbatim; it is written for end users.
func (s *Server) renderDispatchError(c *gin.Context, err error) {
	if errors.Is(err, messaging.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind := messaging.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case messaging.KindNotFound:
		status = http.StatusNotFound
	case messaging.KindLookupUnavailable, messaging.KindInvalidTarget:
		status = http.StatusBadRequest
	case messaging.KindUnreachable:
		status = http.StatusForbidden
	case messaging.KindRateLimited:
		status = http.StatusTooManyRequests
	case messaging.KindConnectionFault:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": messaging.Detail(err), "kind": string(kind)})
}
