package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tailorbook/tailorbook-api/middleware"
	"github.com/tailorbook/tailorbook-api/services"
)

// SignupRequest represents the request body for creating a shop user account
type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Redirect string `json:"redirect" binding:"omitempty"`
}

// LoginRequest represents the request body for signing in
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthController handles signup, login and logout
type AuthController struct {
	auth *services.AuthService
}

// NewAuthController creates a new auth controller
func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Signup handles POST /api/v1/auth/signup - creates a shop user account
func (ctrl *AuthController) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	user, token, err := ctrl.auth.SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "EMAIL_EXISTS",
					"message": "A user with this email already exists",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create account",
			},
		})
		return
	}

	redirect := req.Redirect
	if redirect == "" {
		redirect = "/dashboard"
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"redirect": redirect,
		"data": gin.H{
			"user":  user,
			"token": token,
		},
	})
}

// Login handles POST /api/v1/auth/login - signs a shop user in
func (ctrl *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	user, token, err := ctrl.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			// Generic message, never reveals whether the email exists
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AUTH_FAILED",
					"message": "Could not authenticate",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to sign in",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": "/dashboard",
		"data": gin.H{
			"user":  user,
			"token": token,
		},
	})
}

// Logout handles POST /api/v1/auth/logout - revokes the current session token
func (ctrl *AuthController) Logout(c *gin.Context) {
	token, err := middleware.GetAccessToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract session token",
			},
		})
		return
	}

	if err := ctrl.auth.SignOut(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SIGNOUT_ERROR",
				"message": "Failed to sign out",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": "/login",
	})
}
