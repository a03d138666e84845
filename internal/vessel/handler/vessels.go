package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/seasense/internal/threat"
	"github.com/jmerrifield20/seasense/internal/vessel/model"
	"github.com/jmerrifield20/seasense/internal/vessel/repository"
	"github.com/jmerrifield20/seasense/internal/vessel/service"
)

// maxWindowHours bounds the look-ahead accepted by the arriving endpoint.
const maxWindowHours = 14 * 24

// assessmentSvc is the interface expected by the vessel and score handlers.
// *service.AssessmentService satisfies it.
type assessmentSvc interface {
	GetVessel(ctx context.Context, imo string) (*model.Vessel, error)
	SearchVessels(ctx context.Context, name string) ([]*model.Vessel, error)
	Arriving(ctx context.Context, imo string, window time.Duration) ([]*service.Assessment, error)
	Search(ctx context.Context, query string) ([]*service.Assessment, error)
	ScoreIMO(ctx context.Context, imo, actor string) (*service.ScoreReport, error)
	Ruleset() *threat.Ruleset
}

// VesselHandler serves registry lookups and arrival assessments.
type VesselHandler struct {
	svc    assessmentSvc
	logger *zap.Logger
}

// NewVesselHandler creates a new VesselHandler.
func NewVesselHandler(svc assessmentSvc, logger *zap.Logger) *VesselHandler {
	return &VesselHandler{svc: svc, logger: logger}
}

// Register mounts the vessel routes on the given router group.
func (h *VesselHandler) Register(rg *gin.RouterGroup) {
	v := rg.Group("/vessels")
	{
		v.GET("/imo/:imo", h.GetByIMO)
		v.GET("/name/:name", h.SearchByName)
		v.POST("/arriving", h.Arriving)
		v.POST("/search", h.Search)
	}
}

type arrivingRequest struct {
	IMO         string `json:"imo"`
	WindowHours int    `json:"windowHours"`
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

// GetByIMO handles GET /vessels/imo/:imo.
func (h *VesselHandler) GetByIMO(c *gin.Context) {
	v, err := h.svc.GetVessel(c.Request.Context(), c.Param("imo"))
	if err != nil {
		h.fail(c, "get vessel", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// SearchByName handles GET /vessels/name/:name.
func (h *VesselHandler) SearchByName(c *gin.Context) {
	vs, err := h.svc.SearchVessels(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.fail(c, "search vessels", err)
		return
	}
	if vs == nil {
		vs = []*model.Vessel{}
	}
	c.JSON(http.StatusOK, vs)
}

// Arriving handles POST /vessels/arriving. An empty body lists every vessel
// due within the default window.
func (h *VesselHandler) Arriving(c *gin.Context) {
	var req arrivingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.WindowHours < 0 || req.WindowHours > maxWindowHours {
		c.JSON(http.StatusBadRequest, gin.H{"error": "windowHours must be between 0 and 336"})
		return
	}

	out, err := h.svc.Arriving(c.Request.Context(), req.IMO, time.Duration(req.WindowHours)*time.Hour)
	if err != nil {
		h.fail(c, "assess arriving vessels", err)
		return
	}
	respondAssessments(c, out)
}

// Search handles POST /vessels/search.
func (h *VesselHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.svc.Search(c.Request.Context(), req.Query)
	if err != nil {
		h.fail(c, "search arrivals", err)
		return
	}
	respondAssessments(c, out)
}

func respondAssessments(c *gin.Context, out []*service.Assessment) {
	if out == nil {
		out = []*service.Assessment{}
	}
	c.JSON(http.StatusOK, out)
}

// fail maps service errors to status codes. Storage failures are logged and
// reported without detail.
func (h *VesselHandler) fail(c *gin.Context, op string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "Vessel not found"
	case errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusServiceUnavailable, "vessel registry unavailable"
	}
}
