package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	secret string
	ttl    time.Duration
}

func NewHandler(secret string, ttl time.Duration) *Handler {
	return &Handler{secret: secret, ttl: ttl}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/token", h.Token)
}

type tokenRequest struct {
	Address string `json:"address" binding:"required"`
}

// Token issues a bearer token for a wallet address. In production the
// wallet gateway verifies a signature challenge before calling this;
// the ledger trusts the asserted address either way.
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := IssueToken(h.secret, req.Address, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(h.ttl.Seconds())})
}
