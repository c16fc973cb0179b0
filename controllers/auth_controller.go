package controllers

import (
	"net/http"
	"storefront/models"
	"storefront/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// @Summary Login
// @Description Log in against the store API and keep the access token in the session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login Request"
// @Success 200 {object} models.Response{data=models.SessionStatus}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if err := ctrl.auth.Login(c.Request.Context(), sess, req); err != nil {
		failFor(c, "Login failed", err)
		return
	}
	ok(c, http.StatusOK, "Login successful", ctrl.auth.Status(c.Request.Context(), sess))
}

// @Summary Signup
// @Description Register a customer account with the store API. The session stays logged out.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.SignupRequest true "Signup Request"
// @Success 201 {object} models.Response{data=models.SessionStatus}
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (ctrl *AuthController) Signup(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	if err := ctrl.auth.Signup(c.Request.Context(), req); err != nil {
		failFor(c, "Signup failed", err)
		return
	}
	ok(c, http.StatusCreated, "Signup successful", ctrl.auth.Status(c.Request.Context(), sess))
}

// @Summary Profile
// @Description Account profile with order count and total spent
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.Response{data=models.ProfileResponse}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (ctrl *AuthController) Profile(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	profile, err := ctrl.auth.Profile(c.Request.Context(), sess)
	if err != nil {
		failFor(c, "Failed to load profile", err)
		return
	}
	ok(c, http.StatusOK, "Profile", profile)
}

// @Summary Update profile
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.UpdateProfileRequest true "Profile"
// @Success 200 {object} models.Response{data=models.UserProfile}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [put]
func (ctrl *AuthController) UpdateProfile(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	user, err := ctrl.auth.UpdateProfile(c.Request.Context(), sess, req)
	if err != nil {
		failFor(c, "Failed to update profile", err)
		return
	}
	ok(c, http.StatusOK, "Profile updated", user)
}

// @Summary Logout
// @Description Forget the access token and address draft. The cart is kept.
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.Response{data=models.SessionStatus}
// @Router /auth/logout [post]
func (ctrl *AuthController) Logout(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}

	if err := ctrl.auth.Logout(c.Request.Context(), sess); err != nil {
		fail(c, http.StatusInternalServerError, "Logout failed", err)
		return
	}
	ok(c, http.StatusOK, "Logout successful", ctrl.auth.Status(c.Request.Context(), sess))
}

// @Summary Session status
// @Tags Authentication
// @Produce json
// @Success 200 {object} models.Response{data=models.SessionStatus}
// @Router /auth/status [get]
func (ctrl *AuthController) Status(c *gin.Context) {
	sess, found := session(c)
	if !found {
		return
	}
	ok(c, http.StatusOK, "Session status", ctrl.auth.Status(c.Request.Context(), sess))
}
