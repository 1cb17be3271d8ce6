package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(skipAuth bool) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(skipAuth), func(c *fiber.Ctx) error {
		return c.SendString(Claims(c).OrgID)
	})
	return app
}

func TestAuthMiddleware_RejectsMissingHeader(t *testing.T) {
	resp, err := newApp(false).Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body models.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, models.CodeUnauthorized, body.Code)
}

func TestAuthMiddleware_RejectsBadScheme(t *testing.T) {
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := newApp(false).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_AcceptsToken(t *testing.T) {
	token, err := utils.GenerateToken("u1", "org42", nil, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := newApp(false).Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "org42", string(body))
}

func TestAuthMiddleware_SkipAuth(t *testing.T) {
	resp, err := newApp(true).Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
