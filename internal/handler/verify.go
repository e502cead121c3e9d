package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fairdraw/internal/service"
)

// VerifyHandler serves the public verification endpoint: anyone holding
// a published hash can check a draw outcome without trusting the
// operator.
type VerifyHandler interface {
	Verify(c *gin.Context)
}

type verifyHandler struct {
	drawService service.DrawService
	logger      *zap.Logger
}

func NewVerifyHandler(drawService service.DrawService, logger *zap.Logger) VerifyHandler {
	return &verifyHandler{drawService: drawService, logger: logger}
}

// Verify handles GET /api/verify/:id?hash=<64 hex chars>.
func (h *verifyHandler) Verify(c *gin.Context) {
	claimed := c.Query("hash")
	if claimed == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing 'hash' query parameter"})
		return
	}

	valid, message, err := h.drawService.VerifyResult(c.Param("id"), claimed)
	if err != nil {
		if errors.Is(err, service.ErrDrawNotFound) || errors.Is(err, service.ErrNoResult) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No published result for this draw"})
			return
		}
		h.logger.Error("Failed to verify draw result", zap.String("draw_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify result"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": valid, "message": message})
}
