package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tailorbook/tailorbook-api/services"
)

// RequireAuth is a middleware that validates the Bearer token on the request
// and stores the authenticated user's identity in the Gin context. The
// identity is resolved once here; handlers read it via GetUserID instead of
// re-fetching. Unauthenticated requests are answered with a /login redirect
// target.
func RequireAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success":  false,
				"redirect": "/login",
				"error": gin.H{
					"code":    "MISSING_TOKEN",
					"message": "Authorization header with a Bearer token is required",
				},
			})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success":  false,
				"redirect": "/login",
				"error": gin.H{
					"code":    "INVALID_TOKEN",
					"message": "Failed to validate session token",
				},
			})
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("claims", claims)
		c.Set("access_token", tokenString)

		c.Next()
	}
}

// extractBearerToken pulls the token out of the Authorization header
func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", &AuthError{Code: "MISSING_HEADER", Message: "Authorization header not found"}
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", &AuthError{Code: "MALFORMED_HEADER", Message: "Authorization header must be of the form 'Bearer <token>'"}
	}

	return strings.TrimSpace(parts[1]), nil
}

// GetUserID extracts the authenticated user's ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a uint"}
	}

	return id, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*services.Claims, error) {
	claims, exists := c.Get("claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validated, ok := claims.(*services.Claims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validated, nil
}

// GetAccessToken extracts the raw Bearer token from the Gin context
func GetAccessToken(c *gin.Context) (string, error) {
	token, exists := c.Get("access_token")
	if !exists {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found in context"}
	}

	tokenStr, ok := token.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_TOKEN", Message: "Access token is not a string"}
	}

	return tokenStr, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
