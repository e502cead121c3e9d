package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fairdraw/internal/models"
	"fairdraw/internal/selection"
	"fairdraw/internal/service"
)

type DrawHandler interface {
	CreateDraw(c *gin.Context)
	ListDraws(c *gin.Context)
	GetDraw(c *gin.Context)
	IngestEntries(c *gin.Context)
	UploadEntriesCSV(c *gin.Context)
	Evaluate(c *gin.Context)
	Execute(c *gin.Context)
	GetResult(c *gin.Context)
}

type drawHandler struct {
	drawService service.DrawService
	logger      *zap.Logger
}

func NewDrawHandler(drawService service.DrawService, logger *zap.Logger) DrawHandler {
	return &drawHandler{drawService: drawService, logger: logger}
}

type CreateDrawRequest struct {
	Title           string               `json:"title" binding:"required"`
	WinnersCount    int                  `json:"winners_count" binding:"required,min=1"`
	AlternatesCount int                  `json:"alternates_count" binding:"min=0"`
	ScheduledAt     *time.Time           `json:"scheduled_at,omitempty"`
	AutoRun         bool                 `json:"auto_run"`
	FilterConfig    *models.FilterConfig `json:"filter_config,omitempty"`
}

func (h *drawHandler) CreateDraw(c *gin.Context) {
	var req CreateDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	draw, err := h.drawService.CreateDraw(req.Title, req.WinnersCount, req.AlternatesCount,
		req.ScheduledAt, req.AutoRun, req.FilterConfig)
	if err != nil {
		h.logger.Error("Failed to create draw", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create draw"})
		return
	}

	c.JSON(http.StatusCreated, draw)
}

func (h *drawHandler) ListDraws(c *gin.Context) {
	draws, err := h.drawService.ListDraws()
	if err != nil {
		h.logger.Error("Failed to list draws", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list draws"})
		return
	}
	c.JSON(http.StatusOK, draws)
}

func (h *drawHandler) GetDraw(c *gin.Context) {
	draw, err := h.drawService.GetDraw(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDrawNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draw not found"})
			return
		}
		h.logger.Error("Failed to get draw", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get draw"})
		return
	}
	c.JSON(http.StatusOK, draw)
}

type IngestEntriesRequest struct {
	Entries []*models.Entry `json:"entries" binding:"required"`
}

func (h *drawHandler) IngestEntries(c *gin.Context) {
	var req IngestEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := h.drawService.IngestEntries(c.Param("id"), req.Entries)
	if err != nil {
		h.respondServiceError(c, err, "Failed to ingest entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ingested": len(req.Entries), "total_entries": total})
}

// UploadEntriesCSV ingests entries from a CSV file with the columns
// ext_id, username, text, timestamp (RFC3339, optional), is_reply,
// like_count. The header row is required.
func (h *drawHandler) UploadEntriesCSV(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing CSV file upload"})
		return
	}
	defer file.Close()

	entries, err := parseEntriesCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	total, err := h.drawService.IngestEntries(c.Param("id"), entries)
	if err != nil {
		h.respondServiceError(c, err, "Failed to ingest entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ingested": len(entries), "total_entries": total})
}

func (h *drawHandler) Evaluate(c *gin.Context) {
	outcome, err := h.drawService.Evaluate(c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "Failed to evaluate entries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results":        outcome.Results,
		"eligible_count": len(outcome.Eligible),
	})
}

func (h *drawHandler) Execute(c *gin.Context) {
	result, err := h.drawService.Execute(c.Request.Context(), c.Param("id"))
	if err != nil {
		var capErr *selection.CapacityError
		switch {
		case errors.As(err, &capErr):
			c.JSON(http.StatusConflict, gin.H{
				"error":     capErr.Error(),
				"eligible":  capErr.Eligible,
				"requested": capErr.Requested,
			})
		case errors.Is(err, service.ErrDrawNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Draw not found"})
		case errors.Is(err, service.ErrDrawNotReady), errors.Is(err, service.ErrAlreadyRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to execute draw", zap.String("draw_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to execute draw"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *drawHandler) GetResult(c *gin.Context) {
	result, shortCode, err := h.drawService.GetResult(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Draw has no result yet"})
			return
		}
		h.logger.Error("Failed to get draw result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get result"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result, "short_code": shortCode})
}

func (h *drawHandler) respondServiceError(c *gin.Context, err error, msg string) {
	if errors.Is(err, service.ErrDrawNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draw not found"})
		return
	}
	h.logger.Error(msg, zap.String("draw_id", c.Param("id")), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func parseEntriesCSV(r io.Reader) ([]*models.Entry, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.New("failed to parse CSV: " + err.Error())
	}
	if len(records) < 2 {
		return nil, errors.New("CSV must contain a header row and at least one entry")
	}

	col := map[string]int{}
	for i, name := range records[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["username"]; !ok {
		return nil, errors.New("CSV is missing the required 'username' column")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	entries := make([]*models.Entry, 0, len(records)-1)
	for _, row := range records[1:] {
		e := &models.Entry{
			ExtID:    field(row, "ext_id"),
			Username: field(row, "username"),
			Text:     field(row, "text"),
		}
		if v := field(row, "timestamp"); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, errors.New("invalid timestamp " + v + ": expected RFC3339")
			}
			e.Timestamp = &ts
		}
		if v := field(row, "is_reply"); v != "" {
			e.IsReply = strings.EqualFold(v, "true") || v == "1"
		}
		if v := field(row, "like_count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.New("invalid like_count " + v)
			}
			e.LikeCount = n
		}
		entries = append(entries, e)
	}
	return entries, nil
}
