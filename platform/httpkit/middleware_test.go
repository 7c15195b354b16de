package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtConfig string

func (c jwtConfig) GetJWTAccessSecret() string { return string(c) }

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newProtectedEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("/clients/:clientId", AuthRequired(jwtConfig(secret)), RequireClientAccess("clientId"))
	group.GET("/stats", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return engine
}

func doRequest(engine *gin.Engine, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	engine := newProtectedEngine("secret")
	if code := doRequest(engine, "/clients/acme/stats", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireClientAccess(t *testing.T) {
	engine := newProtectedEngine("secret")
	base := jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}

	own := jwt.MapClaims{"client_id": "acme"}
	admin := jwt.MapClaims{"roles": []string{RoleAdmin}}
	for k, v := range base {
		own[k] = v
		admin[k] = v
	}

	if code := doRequest(engine, "/clients/acme/stats", signToken(t, "secret", own)); code != http.StatusNoContent {
		t.Fatalf("expected own client to pass, got %d", code)
	}
	if code := doRequest(engine, "/clients/other/stats", signToken(t, "secret", own)); code != http.StatusForbidden {
		t.Fatalf("expected other client to be forbidden, got %d", code)
	}
	if code := doRequest(engine, "/clients/other/stats", signToken(t, "secret", admin)); code != http.StatusNoContent {
		t.Fatalf("expected admin to pass, got %d", code)
	}
	if code := doRequest(engine, "/clients/acme/stats", signToken(t, "wrong", own)); code != http.StatusUnauthorized {
		t.Fatalf("expected bad signature to be rejected, got %d", code)
	}
}
