package marketplace

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"energy-market/energy-ledger-backend/internal/auth"
	"energy-market/energy-ledger-backend/internal/certification"
	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/pkg/httperr"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/listings", h.CreateListing)
	r.GET("/listings/:id", h.GetListing)
	r.POST("/listings/:id/buy", h.BuyListing)
	r.POST("/listings/:id/cancel", h.CancelListing)
	r.GET("/proceeds/:address", h.Proceeds)
	r.POST("/certificates", h.CreateCertificate)
	r.POST("/certificates/:id/verify", h.VerifyAndMint)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listing, err := h.service.CreateListing(c.Request.Context(), auth.CallerAddress(c), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *Handler) GetListing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed listing id"})
		return
	}
	listing, err := h.service.GetListing(c.Request.Context(), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type buyListingRequest struct {
	Payment *ledger.BigInt `json:"payment" binding:"required"`
}

func (h *Handler) BuyListing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed listing id"})
		return
	}
	var req buyListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	listing, err := h.service.BuyListing(c.Request.Context(), auth.CallerAddress(c), id, req.Payment)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) CancelListing(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed listing id"})
		return
	}
	listing, err := h.service.CancelListing(c.Request.Context(), auth.CallerAddress(c), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) Proceeds(c *gin.Context) {
	proceeds, err := h.service.ProceedsOf(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": c.Param("address"), "proceeds": proceeds})
}

type createCertificateRequest struct {
	Producer string `json:"producer"`
	certification.SubmitCertificateRequest
}

func (h *Handler) CreateCertificate(c *gin.Context) {
	var req createCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert, err := h.service.CreateCertificate(c.Request.Context(), auth.CallerAddress(c), req.Producer, req.SubmitCertificateRequest)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

type verifyAndMintRequest struct {
	MintAmount *ledger.BigInt `json:"mint_amount" binding:"required"`
}

func (h *Handler) VerifyAndMint(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed certificate id"})
		return
	}
	var req verifyAndMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert, err := h.service.VerifyAndMint(c.Request.Context(), auth.CallerAddress(c), id, req.MintAmount)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}
