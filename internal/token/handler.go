package token

import (
	"net/http"

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
	r.GET("/balances/:address", h.BalanceOf)
	r.GET("/supply", h.TotalSupply)
	r.GET("/allowances/:owner/:spender", h.Allowance)
	r.POST("/transfer", h.Transfer)
	r.POST("/approve", h.Approve)
	r.POST("/transfer-from", h.TransferFrom)
	r.POST("/mint", h.Mint)
}

func (h *Handler) BalanceOf(c *gin.Context) {
	balance, err := h.service.BalanceOf(c.Request.Context(), c.Param("address"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": c.Param("address"), "balance": balance})
}

func (h *Handler) TotalSupply(c *gin.Context) {
	supply, err := h.service.TotalSupply(c.Request.Context())
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_supply": supply})
}

func (h *Handler) Allowance(c *gin.Context) {
	allowance, err := h.service.Allowance(c.Request.Context(), c.Param("owner"), c.Param("spender"))
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowance": allowance})
}

type transferRequest struct {
	To     string         `json:"to" binding:"required"`
	Amount *ledger.BigInt `json:"amount" binding:"required"`
}

func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Transfer(c.Request.Context(), auth.CallerAddress(c), req.To, req.Amount); err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

type approveRequest struct {
	Spender string         `json:"spender" binding:"required"`
	Amount  *ledger.BigInt `json:"amount" binding:"required"`
}

func (h *Handler) Approve(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Approve(c.Request.Context(), auth.CallerAddress(c), req.Spender, req.Amount); err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

type transferFromRequest struct {
	Owner  string         `json:"owner" binding:"required"`
	To     string         `json:"to" binding:"required"`
	Amount *ledger.BigInt `json:"amount" binding:"required"`
}

func (h *Handler) TransferFrom(c *gin.Context) {
	var req transferFromRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.service.TransferFrom(c.Request.Context(), auth.CallerAddress(c), req.Owner, req.To, req.Amount)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

type mintRequest struct {
	To     string         `json:"to" binding:"required"`
	Amount *ledger.BigInt `json:"amount" binding:"required"`
}

func (h *Handler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.service.Mint(c.Request.Context(), auth.CallerAddress(c), req.To, req.Amount); err != nil {
		httperr.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "minted"})
}
