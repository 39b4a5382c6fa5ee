package registry

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-market/energy-ledger-backend/internal/auth"
	"energy-market/energy-ledger-backend/pkg/httperr"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/producers", h.RegisterProducer)
	r.GET("/producers/:address", h.GetProducer)
	r.GET("/producers/:address/registered", h.IsRegistered)
	r.POST("/auditors", h.AuthorizeAuditor)
	r.GET("/auditors/:address", h.IsAuditor)
	r.POST("/verifiers", h.AddVerifier)
	r.GET("/verifiers/:address", h.IsVerifier)
}

func (h *Handler) RegisterProducer(c *gin.Context) {
	var req RegisterProducerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	producer, err := h.service.RegisterProducer(c.Request.Context(), auth.CallerAddress(c), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, producer)
}

func (h *Handler) GetProducer(c *gin.Context) {
	producer, err := h.service.GetProducer(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, producer)
}

func (h *Handler) IsRegistered(c *gin.Context) {
	registered, err := h.service.IsRegisteredProducer(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": registered})
}

type grantRequest struct {
	Address string `json:"address" binding:"required"`
}

func (h *Handler) AuthorizeAuditor(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.AuthorizeAuditor(c.Request.Context(), auth.CallerAddress(c), req.Address); err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "authorized"})
}

func (h *Handler) AddVerifier(c *gin.Context) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.AddVerifier(c.Request.Context(), auth.CallerAddress(c), req.Address); err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

func (h *Handler) IsAuditor(c *gin.Context) {
	ok, err := h.service.IsAuditor(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auditor": ok})
}

func (h *Handler) IsVerifier(c *gin.Context) {
	ok, err := h.service.IsVerifier(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verifier": ok})
}
