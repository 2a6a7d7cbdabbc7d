package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func jwtTestApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/protected", JWTProtected(secret), func(c *fiber.Ctx) error {
		id, _ := c.Locals("user_id").(uint)
		role, _ := c.Locals("user_role").(string)
		return c.JSON(fiber.Map{"id": id, "role": role})
	})
	return app
}

func TestJWTProtectedAcceptsValidToken(t *testing.T) {
	app := jwtTestApp("secret")

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{"sub": "42", "role": "teacher"}))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsMissingHeader(t *testing.T) {
	app := jwtTestApp("secret")

	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSecret(t *testing.T) {
	app := jwtTestApp("secret")

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other", jwt.MapClaims{"sub": "42"}))

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
