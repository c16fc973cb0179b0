package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"storefront/models"
	"storefront/services"
	"storefront/utils"

	"github.com/gin-gonic/gin"
)

// multipartOverhead is the room left for the form fields next to the
// receipt itself.
const multipartOverhead = 1 << 20

type OrderController struct {
	auth          *services.AuthService
	checkout      *services.CheckoutService
	maxUploadSize int64
}

func NewOrderController(auth *services.AuthService, checkout *services.CheckoutService, maxUploadSize int64) *OrderController {
	return &OrderController{auth: auth, checkout: checkout, maxUploadSize: maxUploadSize}
}

// @Summary Order history
// @Tags Orders
// @Produce json
// @Success 200 {object} models.Response{data=[]models.Order}
// @Failure 401 {object} models.ErrorResponse
// @Router /orders [get]
func (ctrl *OrderController) GetOrders(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	orders, err := ctrl.auth.ListOrders(c.Request.Context(), sess)
	if err != nil {
		failFor(c, "Failed to fetch orders", err)
		return
	}
	ok(c, http.StatusOK, "Orders retrieved", orders)
}

// @Summary Checkout
// @Description Submit the cart with a payment screenshot. The cart is cleared once the store accepts the order.
// @Tags Orders
// @Accept multipart/form-data
// @Produce json
// @Param address formData string false "Address JSON, overrides the session draft"
// @Param file formData file true "Payment screenshot"
// @Success 201 {object} models.Response{data=models.CheckoutResult}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /checkout [post]
func (ctrl *OrderController) Checkout(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	if ctrl.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxUploadSize+multipartOverhead)
	}
	if err := c.Request.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, http.StatusRequestEntityTooLarge, "Request too large", nil)
			return
		}
		fail(c, http.StatusBadRequest, "Invalid form", err)
		return
	}

	var req services.CheckoutRequest

	if raw := c.PostForm("address"); raw != "" {
		var addr models.StructuredAddress
		if err := json.Unmarshal([]byte(raw), &addr); err != nil {
			fail(c, http.StatusBadRequest, "Invalid address", err)
			return
		}
		req.Address = &addr
	}

	if file, err := c.FormFile("file"); err == nil {
		if ctrl.maxUploadSize > 0 && file.Size > ctrl.maxUploadSize {
			fail(c, http.StatusBadRequest, services.ErrInvalidReceipt.Error(), utils.ErrFileTooLarge)
			return
		}

		src, err := file.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, "Failed to read receipt", err)
			return
		}
		defer src.Close()

		data, err := io.ReadAll(src)
		if err != nil {
			fail(c, http.StatusBadRequest, "Failed to read receipt", err)
			return
		}
		req.Receipt = &services.Receipt{Filename: file.Filename, Data: data}
	}

	result, err := ctrl.checkout.Checkout(c.Request.Context(), sess, req)
	if err != nil {
		failFor(c, "Checkout failed", err)
		return
	}
	ok(c, http.StatusCreated, "Order placed", result)
}
