package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/talkah/talkah-backend/internal/config"
	"github.com/talkah/talkah-backend/internal/dto"
)

// JWTProtected verifies the bearer token issued by the auth provider.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Success: false,
				Error:   "Unauthorized: invalid or expired token",
			})
		},
	})
}

var ErrNoUser = errors.New("no authenticated user")

// UserID returns the sub claim of the verified token.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrNoUser
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, ErrNoUser
	}
	return uuid.Parse(sub)
}
