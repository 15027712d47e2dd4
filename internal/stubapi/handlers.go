package stubapi

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/pkg/client"
	"github.com/goliatone/go-incident-report/pkg/contract"
	"github.com/goliatone/go-incident-report/pkg/payload"
)

const maxMultipartMemory = 32 << 20

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

type complaintResponse struct {
	ID           string `json:"id"`
	IncidentDate string `json:"incident_date"`
}

func (s *Server) createComplaint(op contract.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "expected multipart/form-data: " + err.Error()})
			return
		}
		form := c.Request.MultipartForm

		fields := make(map[string]string, len(form.Value))
		for name, values := range form.Value {
			if len(values) > 0 {
				fields[name] = values[0]
			}
		}
		if missing := op.Missing(fields); len(missing) > 0 {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{
				Error:   "missing required fields",
				Missing: missing,
			})
			return
		}
		if bad := invalidEnums(op, fields); len(bad) > 0 {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{
				Error: "invalid values for " + strings.Join(bad, ", "),
			})
			return
		}
		if _, err := time.Parse(payload.IncidentDateLayout, fields[payload.KeyIncidentDate]); err != nil {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{
				Error: "incident_date must be YYYY-MM-DD HH:MM:SS",
			})
			return
		}

		var files []StoredFile
		for _, field := range op.FileFields {
			for _, fh := range form.File[field] {
				files = append(files, StoredFile{
					Field:       field,
					Name:        fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
				})
			}
		}

		complaint := &Complaint{
			ID:        s.newID(),
			Fields:    fields,
			Files:     files,
			CreatedAt: s.now(),
		}
		s.mu.Lock()
		s.complaints[complaint.ID] = complaint
		s.order = append(s.order, complaint.ID)
		s.mu.Unlock()

		s.logger.Info("complaint accepted",
			zap.String("id", complaint.ID),
			zap.Int("files", len(files)),
			zap.String("mail_group_id", fields[payload.KeyMailGroupID]),
		)
		c.JSON(http.StatusCreated, complaintResponse{
			ID:           complaint.ID,
			IncidentDate: fields[payload.KeyIncidentDate],
		})
	}
}

func (s *Server) listMailGroups(contract.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": s.groups})
	}
}

func (s *Server) createReviewAction(op contract.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var body client.ReviewAction
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		values := map[string]string{"action": body.Action, "status": body.Status}
		if missing := op.Missing(values); len(missing) > 0 {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "missing required fields", Missing: missing})
			return
		}
		if bad := invalidEnums(op, values); len(bad) > 0 {
			c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "invalid values for " + strings.Join(bad, ", ")})
			return
		}

		s.mu.Lock()
		complaint, ok := s.complaints[id]
		if ok {
			complaint.Actions = append(complaint.Actions, body)
		}
		s.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, errorResponse{Error: "complaint not found"})
			return
		}

		s.logger.Info("review action recorded", zap.String("id", id), zap.String("status", body.Status))
		c.JSON(http.StatusCreated, gin.H{"id": id, "status": body.Status})
	}
}

// invalidEnums lists fields whose non-empty value is outside the contract
// enum.
func invalidEnums(op contract.Operation, values map[string]string) []string {
	var bad []string
	for field, allowed := range op.Enums {
		v, ok := values[field]
		if !ok || v == "" {
			continue
		}
		if !contains(allowed, v) {
			bad = append(bad, field)
		}
	}
	sort.Strings(bad)
	return bad
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func (s *Server) bearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != s.token {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: "Authorization header format must be Bearer {token}"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("request_id", c.GetHeader(client.RequestIDHeader)),
			zap.Duration("elapsed", s.now().Sub(start)),
		)
	}
}
