package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentTransportCountsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := New()
	client := &http.Client{Transport: m.InstrumentTransport(nil)}
	req, _ := http.NewRequest(http.MethodDelete, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := testutil.ToFloat64(m.outRequests.WithLabelValues("204", "delete")); got != 1 {
		t.Errorf("requests_total{204,delete} = %v, want 1", got)
	}
}

func TestGinMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Gin())
	r.GET("/api/v1/buckets", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/buckets", nil))

	if got := testutil.ToFloat64(m.inRequests.WithLabelValues("200", "GET", "/api/v1/buckets")); got != 1 {
		t.Errorf("http requests_total = %v, want 1", got)
	}

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(out.Body.String(), "r2bridge_http_requests_total") {
		t.Errorf("metrics output missing gateway counter")
	}
}
