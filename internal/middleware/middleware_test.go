package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func sign(t *testing.T, secret string, claims JWTClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	user := uuid.NewString()

	r := gin.New()
	r.GET("/p", JWTAuth(secret), func(c *gin.Context) {
		c.String(http.StatusOK, GetClaims(c).UserID)
	})

	valid := sign(t, secret, JWTClaims{UserID: user, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}, jwt.SigningMethodHS256)
	expired := sign(t, secret, JWTClaims{UserID: user, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}, jwt.SigningMethodHS256)
	otherKey := sign(t, "other", JWTClaims{UserID: user}, jwt.SigningMethodHS256)
	noUser := sign(t, secret, JWTClaims{}, jwt.SigningMethodHS256)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + otherKey, http.StatusUnauthorized},
		{"no user_id", "Bearer " + noUser, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, user, w.Body.String())
			}
		})
	}
}

func TestGetClaims_SinToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetClaims(c))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRateLimiter_VentanaFija(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	rl := &rateLimiter{limit: 2, window: time.Minute, entries: make(map[string]*rateEntry), now: func() time.Time { return now }}

	r := gin.New()
	r.Use(rl.handle)
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, hit().Code)
	assert.Equal(t, http.StatusOK, hit().Code)
	w := hit()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "61", w.Header().Get("Retry-After"))

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit().Code)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.purge())
	assert.Empty(t, rl.entries)
}

func TestRateLimiter_NoSerializaPeticionesDeLaMismaIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(100, time.Minute))
	release := make(chan struct{})
	r.GET("/lenta", func(c *gin.Context) {
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/rapida", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(path string) *http.Request {
		rq := httptest.NewRequest(http.MethodGet, path, nil)
		rq.RemoteAddr = "10.0.0.1:1234"
		return rq
	}

	lentaDone := make(chan struct{})
	go func() {
		defer close(lentaDone)
		r.ServeHTTP(httptest.NewRecorder(), req("/lenta"))
	}()
	defer func() {
		close(release)
		<-lentaDone
	}()

	rapidaDone := make(chan int, 1)
	go func() {
		// Give the slow request time to enter its handler.
		time.Sleep(50 * time.Millisecond)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req("/rapida"))
		rapidaDone <- w.Code
	}()

	select {
	case code := <-rapidaDone:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(time.Second):
		t.Fatal("request blocked behind a slow request from the same client")
	}
}

func TestRateLimiter_Desactivado(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(0, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestCORS(t *testing.T) {
	newRouter := func(origins []string) *gin.Engine {
		r := gin.New()
		r.Use(CORS(origins))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}
	send := func(r *gin.Engine, method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("cualquier origen", func(t *testing.T) {
		r := newRouter([]string{"*"})
		w := send(r, http.MethodGet, "https://otro.example.com")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusNoContent, send(r, http.MethodOptions, "https://otro.example.com").Code)
	})

	t.Run("lista de origenes", func(t *testing.T) {
		r := newRouter([]string{"https://caja.example.com/"})

		w := send(r, http.MethodGet, "https://caja.example.com")
		assert.Equal(t, "https://caja.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
		assert.Equal(t, http.StatusNoContent, send(r, http.MethodOptions, "https://caja.example.com").Code)

		w = send(r, http.MethodGet, "https://otro.example.com")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusForbidden, send(r, http.MethodOptions, "https://otro.example.com").Code)

		// Same-origin and non-browser clients send no Origin header.
		assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "").Code)
	})
}
