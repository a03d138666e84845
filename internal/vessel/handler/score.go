package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/auth"
)

// ScoreHandler scores registry records directly and exposes the ruleset.
type ScoreHandler struct {
	svc    assessmentSvc
	logger *zap.Logger
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(svc assessmentSvc, logger *zap.Logger) *ScoreHandler {
	return &ScoreHandler{svc: svc, logger: logger}
}

// Register mounts the score routes on the given router group.
func (h *ScoreHandler) Register(rg *gin.RouterGroup) {
	s := rg.Group("/score")
	{
		s.GET("/headers", h.Headers)
		s.GET("/ruleset", h.Ruleset)
		s.GET("/:imo", h.Score)
	}
}

// Score handles GET /score/:imo. The assessment is appended to the ledger;
// its index is returned in the X-Ledger-Index header.
func (h *ScoreHandler) Score(c *gin.Context) {
	rep, err := h.svc.ScoreIMO(c.Request.Context(), c.Param("imo"), auth.ActorFromCtx(c))
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("score vessel", zap.String("imo", c.Param("imo")), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if rep.LedgerEntry != nil {
		c.Header("X-Ledger-Index", strconv.Itoa(rep.LedgerEntry.Index))
	}
	c.JSON(http.StatusOK, rep.Result)
}

// Headers handles GET /score/headers.
func (h *ScoreHandler) Headers(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Ruleset().Headers())
}

// Ruleset handles GET /score/ruleset.
func (h *ScoreHandler) Ruleset(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Ruleset().Config())
}
