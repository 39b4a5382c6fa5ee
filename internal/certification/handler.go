package certification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"energy-market/energy-ledger-backend/internal/auth"
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
	r.POST("/certificates", h.SubmitCertificate)
	r.GET("/certificates/:id", h.GetCertificate)
	r.POST("/certificates/:id/verify", h.VerifyCertificate)
	r.POST("/audit-reports", h.FileAuditReport)
	r.GET("/audit-reports/:producer", h.ListAuditReports)
	r.POST("/producers/:address/verify", h.VerifyProducer)
}

func (h *Handler) SubmitCertificate(c *gin.Context) {
	var req SubmitCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert, err := h.service.SubmitCertificate(c.Request.Context(), auth.CallerAddress(c), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, cert)
}

func (h *Handler) GetCertificate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed certificate id"})
		return
	}
	cert, err := h.service.GetCertificate(c.Request.Context(), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

type verifyCertificateRequest struct {
	MintAmount *ledger.BigInt `json:"mint_amount" binding:"required"`
}

func (h *Handler) VerifyCertificate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed certificate id"})
		return
	}
	var req verifyCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert, err := h.service.VerifyCertificate(c.Request.Context(), auth.CallerAddress(c), id, req.MintAmount)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (h *Handler) FileAuditReport(c *gin.Context) {
	var req FileAuditReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := h.service.FileAuditReport(c.Request.Context(), auth.CallerAddress(c), req)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func (h *Handler) ListAuditReports(c *gin.Context) {
	reports, err := h.service.AuditReports(c.Request.Context(), c.Param("producer"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (h *Handler) VerifyProducer(c *gin.Context) {
	err := h.service.VerifyProducer(c.Request.Context(), auth.CallerAddress(c), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}
