package certdoc

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"energy-market/energy-ledger-backend/internal/certification"
	"energy-market/energy-ledger-backend/internal/registry"
	"energy-market/energy-ledger-backend/pkg/httperr"
)

type Handler struct {
	certs     certification.Service
	producers registry.Service
	generator *Generator
}

func NewHandler(certs certification.Service, producers registry.Service, generator *Generator) *Handler {
	return &Handler{certs: certs, producers: producers, generator: generator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/certificates/:id/document", h.Document)
}

func (h *Handler) Document(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed certificate id"})
		return
	}
	cert, err := h.certs.GetCertificate(c.Request.Context(), id)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	producer, err := h.producers.GetProducer(c.Request.Context(), cert.Producer)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	doc, err := h.generator.Render(cert, producer)
	if err != nil {
		httperr.Abort(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", doc)
}
