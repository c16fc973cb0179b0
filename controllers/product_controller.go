package controllers

import (
	"net/http"
	"storefront/services"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// @Summary Get all products
// @Description List the store catalogue. An unreachable catalogue yields an empty list.
// @Tags Products
// @Produce json
// @Success 200 {object} models.Response{data=[]models.Product}
// @Router /products [get]
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	products := ctrl.products.GetAllProducts(c.Request.Context())
	ok(c, http.StatusOK, "Products retrieved", products)
}

// @Summary Get product by ID
// @Tags Products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Response{data=models.Product}
// @Failure 404 {object} models.ErrorResponse
// @Router /products/{id} [get]
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id", nil)
		return
	}

	product, err := ctrl.products.GetProductByID(c.Request.Context(), id)
	if err != nil {
		failFor(c, "Failed to fetch product", err)
		return
	}
	ok(c, http.StatusOK, "Product retrieved", product)
}

// @Summary Add product to cart
// @Description Add one unit of a catalogue product using its current name and price
// @Tags Products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} models.Response{data=models.CartResponse}
// @Failure 404 {object} models.ErrorResponse
// @Router /products/{id}/cart [post]
func (ctrl *ProductController) AddToCart(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id", nil)
		return
	}

	if _, err := ctrl.products.AddProductToCart(c.Request.Context(), sess.Cart, id); err != nil {
		failFor(c, "Failed to add product to cart", err)
		return
	}
	ok(c, http.StatusOK, "Item added to cart", sess.Cart.Summary())
}
