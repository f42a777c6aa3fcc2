package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func limitedRouter(rps int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(rps))
	r.GET("/api/kpis", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func getFrom(router http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/kpis", nil)
	req.RemoteAddr = ip + ":40000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimit_PerClient(t *testing.T) {
	router := limitedRouter(2)

	for i := 0; i < 2; i++ {
		if w := getFrom(router, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	w := getFrom(router, "10.0.0.1")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("expected Retry-After 1, got %q", got)
	}

	// another dashboard user still has a full burst
	if w := getFrom(router, "10.0.0.2"); w.Code != http.StatusOK {
		t.Errorf("expected second client to pass, got %d", w.Code)
	}
}

func TestRateLimit_RejectedRequestsDoNotBorrowTokens(t *testing.T) {
	limiters := &clientLimiters{rps: 1, clients: make(map[string]*rate.Limiter)}
	lim := limiters.get("10.0.0.3")
	lim.Allow()

	for i := 0; i < 5; i++ {
		r := lim.Reserve()
		if r.Delay() == 0 {
			t.Fatal("expected the bucket to be empty")
		}
		r.Cancel()
	}

	if tokens := lim.Tokens(); tokens < -0.5 {
		t.Errorf("cancelled reservations left the bucket in debt: %.2f tokens", tokens)
	}
}

func TestRateLimit_NonPositiveRateStillServes(t *testing.T) {
	router := limitedRouter(0)

	if w := getFrom(router, "10.0.0.4"); w.Code != http.StatusOK {
		t.Errorf("expected first request to pass, got %d", w.Code)
	}
}

func TestClientLimiters_TableIsBounded(t *testing.T) {
	l := &clientLimiters{rps: 1, clients: make(map[string]*rate.Limiter)}
	for i := 0; i < maxTrackedClients+10; i++ {
		l.get(fmt.Sprintf("10.1.%d.%d", i/256, i%256))
	}
	if n := len(l.clients); n > maxTrackedClients {
		t.Errorf("expected at most %d tracked clients, got %d", maxTrackedClients, n)
	}
}
