package auth

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	tok, exp, err := m.GenerateAccessToken("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestVerifyRejects(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	tok, _, err := m.GenerateAccessToken("user-1")
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour).VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.VerifyToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTManager("secret", time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.GenerateAccessToken("user-1")
	require.NoError(t, err)
	_, err = m.VerifyToken(old)
	assert.ErrorIs(t, err, ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "x", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.VerifyToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExtraction(t *testing.T) {
	app := fiber.New()
	app.Get("/http", func(c *fiber.Ctx) error { return c.SendString(TokenFromRequest(c, "accessToken")) })
	app.Get("/ws", func(c *fiber.Ctx) error { return c.SendString(TokenFromHandshake(c, "accessToken")) })

	read := func(req *fiberRequest) string {
		r := httptest.NewRequest("GET", req.path, nil)
		for k, v := range req.headers {
			r.Header.Set(k, v)
		}
		resp, err := app.Test(r)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Equal(t, "abc", read(&fiberRequest{path: "/http", headers: map[string]string{"Authorization": "Bearer abc"}}))
	assert.Equal(t, "fromcookie", read(&fiberRequest{path: "/http", headers: map[string]string{
		"Authorization": "Bearer abc",
		"Cookie":        "accessToken=fromcookie",
	}}))
	assert.Equal(t, "", read(&fiberRequest{path: "/http", headers: map[string]string{"Authorization": "Basic abc"}}))
	assert.Equal(t, "q", read(&fiberRequest{path: "/ws?token=q", headers: map[string]string{"Authorization": "Bearer abc"}}))
	assert.Equal(t, "abc", read(&fiberRequest{path: "/ws", headers: map[string]string{"Authorization": "bearer abc"}}))
}

type fiberRequest struct {
	path    string
	headers map[string]string
}
