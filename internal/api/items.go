package api

import (
	"net/http"
	"strconv"

	"ecommerce-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createItem(c *gin.Context) {
	var req models.ItemCreate
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.itemService.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// listItems pages through items with ?skip=&limit=
func (h *Handler) listItems(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid skip"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.itemService.DefaultLimit())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	items, err := h.itemService.List(c.Request.Context(), skip, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if items == nil {
		items = []models.Item{}
	}

	c.JSON(http.StatusOK, items)
}

func (h *Handler) getItem(c *gin.Context) {
	id, ok := parseID(c, "item")
	if !ok {
		return
	}

	item, err := h.itemService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) updateItem(c *gin.Context) {
	id, ok := parseID(c, "item")
	if !ok {
		return
	}

	var req models.ItemUpdate
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.itemService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) deleteItem(c *gin.Context) {
	id, ok := parseID(c, "item")
	if !ok {
		return
	}

	if err := h.itemService.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}
