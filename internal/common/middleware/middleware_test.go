package middleware

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/testutil"
)

const testBotToken = "123456:TEST-TOKEN"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.Use(mw...)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp
}

func TestTelegramInitData(t *testing.T) {
	r := newRouter(TelegramInitData(testBotToken, time.Hour))
	r.GET("/me", func(c *gin.Context) {
		identity, ok := LaunchIdentityFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, identity)
	})

	user := testutil.InitUser{ID: 12345, FirstName: "Ann", Username: "ann", LanguageCode: "en", IsPremium: true}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(InitDataHeader, testutil.SignInitData(testBotToken, user, time.Now()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"telegramId":12345`)
		assert.Contains(t, w.Body.String(), `"isPremium":true`)
	})

	t.Run("legacy header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("init_data", testutil.SignInitData(testBotToken, user, time.Now()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(InitDataHeader, testutil.SignInitData("other:token", user, time.Now()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(InitDataHeader, testutil.SignInitData(testBotToken, user, time.Now().Add(-2*time.Hour)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRespondError_HidesStorageFailures(t *testing.T) {
	r := newRouter()
	r.GET("/fail", HandleErrorWrapper(func(c *gin.Context) {
		_ = c.Error(errors.NewStorageUnavailableError("find user", stderrors.New("dial tcp 10.0.0.5:6379: refused")))
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, errors.SessionRetryMessage, resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.NotEmpty(t, resp.RequestID)
}

func TestRespondError_PlainErrorIsInternal(t *testing.T) {
	r := newRouter()
	r.GET("/fail", HandleErrorWrapper(func(c *gin.Context) {
		_ = c.Error(stderrors.New("secret detail"))
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestErrorHandler_RecoversPanics(t *testing.T) {
	r := newRouter()
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestRequestID_PropagatesHeader(t *testing.T) {
	r := newRouter()
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}

func TestRequireBotSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusOK},
		{"match", "s3cret", "s3cret", http.StatusOK},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"mismatch", "s3cret", "guess", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RequireBotSecret(tt.secret))
			r.POST("/cb", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/cb", nil)
			if tt.header != "" {
				req.Header.Set(BotSecretHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	r := newRouter(rl.Handler())
	r.GET("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	rl.Cleanup(time.Now().Add(time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
