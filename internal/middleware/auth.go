package middleware

import (
	"strings"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/models"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/logger"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

const (
	currentUserKey = "currentUser"
	userIDKey      = "userID"
)

type AuthMiddleware struct {
	DB *gorm.DB
}

func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{DB: db}
}

// CORS allows the SPA origins. With no origins configured every origin is
// accepted, which is what local development wants.
func CORS(origins []string) fiber.Handler {
	allow := "*"
	if len(origins) > 0 {
		expanded := make([]string, 0, len(origins)*2)
		for _, o := range origins {
			expanded = append(expanded, o)
			if strings.Contains(o, "localhost") {
				expanded = append(expanded, strings.Replace(o, "localhost", "127.0.0.1", 1))
			}
		}
		allow = strings.Join(expanded, ",")
	}
	return cors.New(cors.Config{
		AllowOrigins:  allow,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		ExposeHeaders: "Content-Disposition",
	})
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
	if token == header || token == "" {
		return "", false
	}
	return token, true
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		logger.Warn("auth_missing_header", map[string]any{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	tokenString, ok := bearerToken(c)
	if !ok {
		logger.Warn("auth_invalid_format", map[string]any{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		logger.Warn("jwt_validation_failed", map[string]any{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		logger.Warn("jwt_user_not_found", map[string]any{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": claims.UserID.String(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "user not found")
	}
	if !user.IsActive() {
		return utils.Error(c, fiber.StatusForbidden, "account is inactive")
	}

	setCurrentUser(c, &user)
	return c.Next()
}

// OptionalAuth attaches the user when a valid token is present and never
// rejects the request.
func (a *AuthMiddleware) OptionalAuth(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return c.Next()
	}
	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return c.Next()
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", claims.UserID).Error; err != nil || !user.IsActive() {
		return c.Next()
	}
	setCurrentUser(c, &user)
	return c.Next()
}

func setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(currentUserKey, user)
	c.Locals(userIDKey, user.ID.String())
}

func AdminOnly(c *fiber.Ctx) error {
	user := GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if !user.IsAdmin() {
		return utils.Error(c, fiber.StatusForbidden, "admin access required")
	}
	return c.Next()
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	user, ok := c.Locals(currentUserKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
