package httpserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"order-fulfillment/internal/domain"
)

func (h *handlers) listProducts(c *gin.Context) {
	all, _ := strconv.ParseBool(c.Query("all"))
	products, err := h.catalog.List(c.Request.Context(), all)
	if err != nil {
		writeError(c, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

func (h *handlers) getProduct(c *gin.Context) {
	id, err := pathID(c, "productId")
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) getProductBySKU(c *gin.Context) {
	p, err := h.catalog.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
