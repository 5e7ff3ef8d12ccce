package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/database"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/utils"
)

// AuthMiddleware verifies the bearer credential minted by the auth service
// and puts the caller's account ID into the request context. Token issuance
// is not this backend's concern; a rejected token means the client must
// re-authenticate upstream.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// The account must still exist and be active.
		var account models.Account
		if err := database.DB.Select("id", "is_active").First(&account, "id = ?", claims.AccountID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
			c.Abort()
			return
		}
		if !account.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
			c.Abort()
			return
		}

		c.Set("accountId", claims.AccountID)
		c.Next()
	}
}
