package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

var testHMACKey = []byte("test-secret")

func testKeyfunc(token *jwt.Token) (interface{}, error) {
	return testHMACKey, nil
}

func signTestToken(t *testing.T, sub, iss string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "iss": iss}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testHMACKey)
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

func newOptionalAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/event", optionalJWTMiddleware(testKeyfunc), transportMetadataMiddleware(), func(c *gin.Context) {
		meta, _ := c.Get("transport_metadata")
		c.JSON(http.StatusOK, meta)
	})
	return engine
}

func TestOptionalJWTMiddleware_NoToken_ProceedsWithoutClaims(t *testing.T) {
	engine := newOptionalAuthRouter()
	req := httptest.NewRequest(http.MethodPost, "/event", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "jwt_sub")
}

func TestOptionalJWTMiddleware_ValidToken_SetsTransportMetadata(t *testing.T) {
	engine := newOptionalAuthRouter()
	req := httptest.NewRequest(http.MethodPost, "/event", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, "user-123", "issuer-abc"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"jwt_sub":"user-123"`)
	assert.Contains(t, w.Body.String(), `"jwt_iss":"issuer-abc"`)
}

func TestOptionalJWTMiddleware_InvalidToken_ProceedsWithoutClaims(t *testing.T) {
	engine := newOptionalAuthRouter()
	req := httptest.NewRequest(http.MethodPost, "/event", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "jwt_sub")
}
