package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/subdesk/subdesk/internal/errors"
	"github.com/subdesk/subdesk/internal/logger"
	"github.com/subdesk/subdesk/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		details map[string]any
	}{
		{
			name: "hint and details",
			err: ierr.NewError("plan not found").
				WithHint("Plan not found").
				WithReportableDetails(map[string]any{"plan_id": "plan_1"}).
				Mark(ierr.ErrNotFound),
			status:  http.StatusNotFound,
			code:    ierr.ErrCodeNotFound,
			message: "Plan not found",
			details: map[string]any{"plan_id": "plan_1"},
		},
		{
			name:    "unmarked error",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    ierr.ErrCodeSystemError,
			message: "An unexpected error occurred",
		},
		{
			name:    "rate limited",
			err:     ierr.NewError("slow down").WithHint("Slow down").Mark(ierr.ErrRateLimited),
			status:  http.StatusTooManyRequests,
			code:    ierr.ErrCodeRateLimited,
			message: "Slow down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(logger.NewNopLogger()))
			r.GET("/", func(c *gin.Context) { c.Error(tt.err) })

			w := serve(r, http.MethodGet, "/")
			require.Equal(t, tt.status, w.Code)

			var resp ierr.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Display)
			assert.Equal(t, tt.details, resp.Error.Details)
		})
	}
}

func TestErrorHandlerKeepsWrittenResponse(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNopLogger()))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusAccepted, "done")
		c.Error(errors.New("late"))
	})

	w := serve(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "done", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNopLogger()))
	r.POST("/run", RateLimit(time.Hour), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/run").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/run").Code)
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.POST("/run", RateLimit(0), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/run").Code)
	}
}

func TestLoggingMiddlewareRecordsRoutePattern(t *testing.T) {
	registry := metrics.NewRegistry()
	r := gin.New()
	r.Use(LoggingMiddleware(logger.NewNopLogger(), registry))
	r.GET("/customers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/customers/cust_1")
	serve(r, http.MethodGet, "/customers/cust_2")
	serve(r, http.MethodGet, "/nowhere")

	w := httptest.NewRecorder()
	registry.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `subdesk_http_requests_total{method="GET",path="/customers/:id",status_code="200"} 2`)
	assert.Contains(t, body, `subdesk_http_requests_total{method="GET",path="unmatched",status_code="404"} 1`)
}
