package views

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"energy-market/energy-ledger-backend/pkg/httperr"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/listings", h.ActiveListings)
	r.GET("/producers/:address/certificates", h.CertificatesOf)
	r.GET("/unverified-producers", h.UnverifiedProducers)
	r.GET("/stats", h.MarketStats)
}

func (h *Handler) ActiveListings(c *gin.Context) {
	listings, err := h.service.ActiveListings(c.Request.Context())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *Handler) CertificatesOf(c *gin.Context) {
	certs, err := h.service.CertificatesOf(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, certs)
}

func (h *Handler) UnverifiedProducers(c *gin.Context) {
	producers, err := h.service.UnverifiedProducers(c.Request.Context())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, producers)
}

func (h *Handler) MarketStats(c *gin.Context) {
	stats, err := h.service.MarketStats(c.Request.Context())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
