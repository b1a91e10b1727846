package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndPathFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/wishes", func(c *gin.Context) { c.String(http.StatusOK, "[]") })

	// Baselines so other tests in the package cannot interfere.
	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/wishes", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/wishes", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /wishes -> %d", w.Code)
	}

	// Missing route: path label falls back to the raw URL.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /does-not-exist -> %d", w.Code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/wishes", "200")); got != baseOK+1 {
		t.Fatalf("counter /wishes 200 = %v; want %v", got, baseOK+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/does-not-exist", "404")); got != base404+1 {
		t.Fatalf("counter 404 fallback = %v; want %v", got, base404+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestStreamClientConnected(t *testing.T) {
	base := testutil.ToFloat64(streamClients)

	done := StreamClientConnected()
	if got := testutil.ToFloat64(streamClients); got != base+1 {
		t.Fatalf("streamClients after connect = %v; want %v", got, base+1)
	}
	done()
	if got := testutil.ToFloat64(streamClients); got != base {
		t.Fatalf("streamClients after disconnect = %v; want %v", got, base)
	}
}
