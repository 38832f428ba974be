package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"SerialWatch/internal/domain"
	"SerialWatch/internal/usecase"
)

const ownerHeader = "X-User-ID"

// Handler adapts the pipeline service to HTTP requests.
type Handler struct {
	service *usecase.Service
	logger  *slog.Logger
}

// NewHandler wires the service into request handlers.
func NewHandler(service *usecase.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

type serialRequest struct {
	Name        string `json:"name"`
	SerialValue string `json:"serial_value" binding:"required"`
	IsActive    *bool  `json:"is_active"`
}

// CreateSerial registers a serial for monitoring.
func (h *Handler) CreateSerial(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	var req serialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	serial, err := h.service.CreateSerial(c.Request.Context(), ownerID, req.Name, req.SerialValue)
	if err != nil {
		h.respondError(c, err, "create serial")
		return
	}

	c.JSON(http.StatusCreated, serial)
}

// ListSerials returns all serials the caller tracks.
func (h *Handler) ListSerials(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	serials, err := h.service.ListSerials(c.Request.Context(), ownerID)
	if err != nil {
		h.respondError(c, err, "list serials")
		return
	}

	c.JSON(http.StatusOK, gin.H{"serials": serials, "count": len(serials)})
}

// UpdateSerial edits name, value, and active flag of an owned serial.
func (h *Handler) UpdateSerial(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}
	serialID, ok := idParam(c)
	if !ok {
		return
	}

	var req serialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	serial, err := h.service.UpdateSerial(c.Request.Context(), serialID, ownerID, req.Name, req.SerialValue, req.IsActive)
	if err != nil {
		h.respondError(c, err, "update serial")
		return
	}

	c.JSON(http.StatusOK, serial)
}

// DeleteSerial removes a serial with its detections and scan logs.
func (h *Handler) DeleteSerial(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}
	serialID, ok := idParam(c)
	if !ok {
		return
	}

	if err := h.service.DeleteSerial(c.Request.Context(), serialID, ownerID); err != nil {
		h.respondError(c, err, "delete serial")
		return
	}

	c.Status(http.StatusNoContent)
}

// ScanSerial runs the pipeline for one serial. The optional ?type query
// selects all, marketplace-only, or general-only sub-queries.
func (h *Handler) ScanSerial(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}
	serialID, ok := idParam(c)
	if !ok {
		return
	}

	searchType, ok := searchTypeFrom(c)
	if !ok {
		return
	}

	result, err := h.service.ScanOne(c.Request.Context(), serialID, ownerID, searchType)
	if err != nil {
		h.respondError(c, err, "scan serial")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ScanAll runs the pipeline across the caller's active serials.
func (h *Handler) ScanAll(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	searchType, ok := searchTypeFrom(c)
	if !ok {
		return
	}

	result, err := h.service.ScanAllForUser(c.Request.Context(), ownerID, searchType)
	if err != nil {
		h.respondError(c, err, "scan fleet")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListScanLogs returns scan history for an owned serial.
func (h *Handler) ListScanLogs(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}
	serialID, ok := idParam(c)
	if !ok {
		return
	}

	logs, err := h.service.ListScanLogs(c.Request.Context(), serialID, ownerID)
	if err != nil {
		h.respondError(c, err, "list scan logs")
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// ListDetections returns the caller's detections, optionally filtered by the
// ?marketplace=true|false query.
func (h *Handler) ListDetections(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}

	var filter domain.DetectionFilter
	if raw, present := c.GetQuery("marketplace"); present {
		flag, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid marketplace filter"})
			return
		}
		filter.Marketplace = &flag
	}

	detections, err := h.service.ListDetections(c.Request.Context(), ownerID, filter)
	if err != nil {
		h.respondError(c, err, "list detections")
		return
	}

	c.JSON(http.StatusOK, gin.H{"detections": detections, "count": len(detections)})
}

// UpdateDetectionStatus moves a detection to any of the known statuses.
func (h *Handler) UpdateDetectionStatus(c *gin.Context) {
	ownerID, ok := ownerFrom(c)
	if !ok {
		return
	}
	detectionID, ok := idParam(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.service.UpdateDetectionStatus(c.Request.Context(), detectionID, ownerID, domain.DetectionStatus(req.Status))
	if err != nil {
		h.respondError(c, err, "update detection status")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.logger != nil {
			h.logger.Error("request failed", "action", action, "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func ownerFrom(c *gin.Context) (int64, bool) {
	raw := c.GetHeader(ownerHeader)
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + ownerHeader + " header"})
		return 0, false
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ownerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + ownerHeader + " header"})
		return 0, false
	}
	return ownerID, true
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func searchTypeFrom(c *gin.Context) (domain.SearchType, bool) {
	raw := c.DefaultQuery("type", string(domain.SearchAll))
	switch domain.SearchType(raw) {
	case domain.SearchAll, domain.SearchMarketplaceOnly, domain.SearchGeneralOnly:
		return domain.SearchType(raw), true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan type"})
	return "", false
}
