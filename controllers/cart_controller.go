package controllers

import (
	"net/http"
	"storefront/models"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CartController struct{}

func NewCartController() *CartController {
	return &CartController{}
}

// @Summary Get cart
// @Description Get the session cart with total and item count
// @Tags Cart
// @Produce json
// @Success 200 {object} models.Response{data=models.CartResponse}
// @Router /cart [get]
func (ctrl *CartController) GetCart(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, "Cart retrieved", sess.Cart.Summary())
}

// @Summary Add to cart
// @Description Add one unit of a product. An existing line has its quantity incremented.
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.ProductInput true "Product"
// @Success 200 {object} models.Response{data=models.CartResponse}
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /cart/items [post]
func (ctrl *CartController) AddItem(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	var req models.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if err := sess.Cart.AddToCart(c.Request.Context(), req); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart", err)
		return
	}
	ok(c, http.StatusOK, "Item added to cart", sess.Cart.Summary())
}

// @Summary Update cart quantity
// @Description Set a line's quantity. Zero or less removes the line.
// @Tags Cart
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param request body models.UpdateQuantityRequest true "Quantity"
// @Success 200 {object} models.Response{data=models.CartResponse}
// @Failure 400 {object} models.ErrorResponse
// @Router /cart/items/{id} [patch]
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id", nil)
		return
	}

	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if err := sess.Cart.UpdateQuantity(c.Request.Context(), id, *req.Quantity); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart", err)
		return
	}
	ok(c, http.StatusOK, "Cart updated", sess.Cart.Summary())
}

// @Summary Remove from cart
// @Tags Cart
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Response{data=models.CartResponse}
// @Router /cart/items/{id} [delete]
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id", nil)
		return
	}

	if err := sess.Cart.RemoveFromCart(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart", err)
		return
	}
	ok(c, http.StatusOK, "Item removed", sess.Cart.Summary())
}

// @Summary Clear cart
// @Tags Cart
// @Produce json
// @Success 200 {object} models.Response{data=models.CartResponse}
// @Router /cart [delete]
func (ctrl *CartController) ClearCart(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	if err := sess.Cart.ClearCart(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart", err)
		return
	}
	ok(c, http.StatusOK, "Cart cleared", sess.Cart.Summary())
}
