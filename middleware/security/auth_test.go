package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	sec "CrossChat/tools/security"

	"github.com/gin-gonic/gin"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	opts := sec.DefaultOptions([]byte("secret"))

	r := gin.New()
	r.Use(Middleware(opts))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserKey))
	})

	do := func(authz string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	token, _, err := sec.Generate(opts, "alice")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	w := do("Bearer " + token)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("valid token: code=%d body=%q", w.Code, w.Body.String())
	}

	if w := do(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: %d", w.Code)
	}
	if w := do("Bearer garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}
	if w := do(token); w.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer scheme: %d", w.Code)
	}
}
