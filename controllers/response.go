package controllers

import (
	"errors"
	"net/http"
	"storefront/libs"
	"storefront/middleware"
	"storefront/models"
	"storefront/services"

	"github.com/gin-gonic/gin"
)

func ok(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.Response{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, status int, message string, err error) {
	resp := models.ErrorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}

// failFor maps service errors onto HTTP statuses.
func failFor(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, services.ErrNotLoggedIn), errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrMissingAddress),
		errors.Is(err, services.ErrMissingReceipt),
		errors.Is(err, services.ErrInvalidReceipt):
		fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, libs.ErrNotFound):
		fail(c, http.StatusNotFound, "Not found", nil)
	default:
		fail(c, http.StatusBadGateway, message, err)
	}
}

func session(c *gin.Context) (*services.Session, bool) {
	sess := middleware.CurrentSession(c)
	if sess == nil {
		fail(c, http.StatusInternalServerError, "Session unavailable", nil)
		return nil, false
	}
	return sess, true
}
