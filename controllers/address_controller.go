package controllers

import (
	"net/http"
	"storefront/models"
	"storefront/services"

	"github.com/gin-gonic/gin"
)

type AddressController struct{}

func NewAddressController() *AddressController {
	return &AddressController{}
}

func draftResponse(a *services.AddressAutofill, outcome services.LookupOutcome) models.AddressDraftResponse {
	resp := models.AddressDraftResponse{Outcome: string(outcome), Sequence: a.Sequence()}
	if addr, has := a.Current(); has {
		resp.Address = &addr
	}
	return resp
}

// @Summary Resolve address
// @Description Reverse-geocode a map pin into the checkout address draft. A failed or superseded lookup leaves the draft unchanged.
// @Tags Address
// @Accept json
// @Produce json
// @Param request body models.ResolveAddressRequest true "Coordinate"
// @Success 200 {object} models.Response{data=models.AddressDraftResponse}
// @Failure 400 {object} models.ErrorResponse
// @Router /address/resolve [post]
func (ctrl *AddressController) Resolve(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	var req models.ResolveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid coordinate", err)
		return
	}

	_, outcome := sess.Address.Lookup(c.Request.Context(), models.Coordinate{Lat: *req.Lat, Lng: *req.Lng})

	message := "Address resolved"
	switch outcome {
	case services.LookupFailed:
		message = "Address lookup failed, enter the address manually"
	case services.LookupStale:
		message = "A newer lookup superseded this one"
	}
	ok(c, http.StatusOK, message, draftResponse(sess.Address, outcome))
}

// @Summary Get address draft
// @Tags Address
// @Produce json
// @Success 200 {object} models.Response{data=models.AddressDraftResponse}
// @Router /address [get]
func (ctrl *AddressController) GetDraft(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, "Address draft retrieved", draftResponse(sess.Address, ""))
}

// @Summary Set address draft
// @Description Replace the draft with a manually edited address
// @Tags Address
// @Accept json
// @Produce json
// @Param request body models.StructuredAddress true "Address"
// @Success 200 {object} models.Response{data=models.AddressDraftResponse}
// @Failure 400 {object} models.ErrorResponse
// @Router /address [put]
func (ctrl *AddressController) SetDraft(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	var req models.StructuredAddress
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid address", err)
		return
	}

	sess.Address.Set(req)
	ok(c, http.StatusOK, "Address saved", draftResponse(sess.Address, ""))
}
