package apihttp

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"scview/internal/layout"
	"scview/internal/logger"
	"scview/internal/markers"
	"scview/internal/render"
	"scview/internal/store/gallery"
	"scview/internal/store/renderlog"
)

// RenderService is implemented by render.Service.
type RenderService interface {
	Render(ctx context.Context, req render.Request) (*render.Result, error)
	DatasetSummary() render.Summary
	ThemeNames() []string
}

// GalleryReader is the read side of the gallery store.
type GalleryReader interface {
	Get(ctx context.Context, id string) (*gallery.Record, error)
	List(ctx context.Context, dataset string, limit int) ([]gallery.Record, error)
}

// AuditReader lists recent render log entries.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]renderlog.Entry, error)
}

// Router exposes the render and gallery endpoints.
type Router struct {
	svc     RenderService
	gallery GalleryReader
	audit   AuditReader
}

func NewRouter(svc RenderService, gal GalleryReader, audit AuditReader) *Router {
	return &Router{svc: svc, gallery: gal, audit: audit}
}

// Register mounts the /api routes onto the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/dataset", r.handleDataset)
	group.GET("/themes", r.handleThemes)
	group.POST("/renders", r.handleRender)
	group.GET("/renders", r.handleRenderList)
	group.GET("/renders/:id", r.handleRenderGet)
	group.GET("/renders/:id/html", r.handleRenderHTML)
	group.GET("/log", r.handleAuditLog)
}

func (r *Router) handleDataset(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dataset": r.svc.DatasetSummary()})
}

func (r *Router) handleThemes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"themes": r.svc.ThemeNames()})
}

func (r *Router) handleRender(c *gin.Context) {
	var req render.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Errorf("[api] render bind failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reqCtx := c.Request.Context()
	callCtx, cancel := context.WithTimeout(reqCtx, 60*time.Second)
	defer cancel()
	res, err := r.svc.Render(callCtx, req)
	if err != nil {
		status := http.StatusInternalServerError
		if isClientError(err) {
			status = http.StatusBadRequest
		}
		logger.Errorf("[api] render failed ip=%s kind=%s err=%v", c.ClientIP(), req.Kind, err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] render ok ip=%s kind=%s id=%s", c.ClientIP(), res.Record.Kind, res.Record.ID)
	resp := gin.H{"render": res.Record}
	if uri := res.Image.DataURI(); uri != "" {
		resp["png_data_uri"] = uri
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleRenderList(c *gin.Context) {
	if r.gallery == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gallery not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	recs, err := r.gallery.List(c.Request.Context(), c.Query("dataset"), limit)
	if err != nil {
		logger.Errorf("[api] render list failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"renders": recs, "count": len(recs)})
}

func (r *Router) handleRenderGet(c *gin.Context) {
	if r.gallery == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gallery not enabled"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	rec, err := r.gallery.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "render not found"})
			return
		}
		logger.Errorf("[api] render get failed ip=%s id=%s err=%v", c.ClientIP(), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"render": rec})
}

func (r *Router) handleRenderHTML(c *gin.Context) {
	if r.gallery == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gallery not enabled"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	rec, err := r.gallery.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "render not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec.HTMLPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "render kept no html artifact"})
		return
	}
	data, err := os.ReadFile(rec.HTMLPath)
	if err != nil {
		logger.Warnf("[api] render html read failed ip=%s id=%s err=%v", c.ClientIP(), id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

func (r *Router) handleAuditLog(c *gin.Context) {
	if r.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "render log not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	entries, err := r.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.Errorf("[api] render log failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// isClientError separates bad requests from genuine render failures.
func isClientError(err error) bool {
	return errors.Is(err, render.ErrUnknownPlotKind) ||
		errors.Is(err, markers.ErrInvalidPanelRequest) ||
		errors.Is(err, markers.ErrEmptyGroupSubset) ||
		errors.Is(err, layout.ErrUnknownClusteringMethod) ||
		errors.Is(err, layout.ErrUnknownAnnotationColumn)
}
