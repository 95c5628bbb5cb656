package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/viadrive/lance/internal/fipe"
)

// FipeHandler proxies the FIPE vehicle price reference tables
type FipeHandler struct {
	client *fipe.Client
	logger *slog.Logger
}

// NewFipeHandler creates a new FIPE handler
func NewFipeHandler(client *fipe.Client, logger *slog.Logger) *FipeHandler {
	return &FipeHandler{client: client, logger: logger}
}

// Brands handles GET /api/fipe/brands
func (h *FipeHandler) Brands(c *gin.Context) {
	body, err := h.client.Brands(c.Request.Context())
	h.respond(c, body, err)
}

// Models handles GET /api/fipe/models?brand=:id
func (h *FipeHandler) Models(c *gin.Context) {
	brand := c.Query("brand")
	if brand == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand is required"})
		return
	}
	body, err := h.client.Models(c.Request.Context(), brand)
	h.respond(c, body, err)
}

// Years handles GET /api/fipe/years?brand=:id&model=:id
func (h *FipeHandler) Years(c *gin.Context) {
	brand, model := c.Query("brand"), c.Query("model")
	if brand == "" || model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand and model are required"})
		return
	}
	body, err := h.client.Years(c.Request.Context(), brand, model)
	h.respond(c, body, err)
}

// Price handles GET /api/fipe/price?brand=:id&model=:id&year=:id
func (h *FipeHandler) Price(c *gin.Context) {
	brand, model, year := c.Query("brand"), c.Query("model"), c.Query("year")
	if brand == "" || model == "" || year == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand, model and year are required"})
		return
	}
	body, err := h.client.Price(c.Request.Context(), brand, model, year)
	h.respond(c, body, err)
}

// Search handles GET /api/fipe/search?make=:name&model=:name&year=:year
func (h *FipeHandler) Search(c *gin.Context) {
	makeName, modelName, yearStr := c.Query("make"), c.Query("model"), c.Query("year")
	if makeName == "" || modelName == "" || yearStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "make, model and year are required"})
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}

	body, err := h.client.Search(c.Request.Context(), makeName, modelName, year)
	if err != nil && errors.Is(err, fipe.ErrVehicleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "vehicle not found in fipe table"})
		return
	}
	h.respond(c, body, err)
}

func (h *FipeHandler) respond(c *gin.Context, body []byte, err error) {
	if err != nil {
		if errors.Is(err, fipe.ErrUpstream) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "price reference service unavailable"})
			return
		}
		respondDomainError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}
