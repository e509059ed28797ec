package testutils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// StubTargetOptions configures the stub's behavior per request.
type StubTargetOptions struct {
	// Latency delays every response.
	Latency time.Duration
	// Status is the response code for successful requests (default 200).
	Status int
	// FailEvery makes every n-th request return 500. Zero disables.
	FailEvery int
	// RequireAuth rejects requests without a valid HS256 bearer token
	// signed with JWTSecret.
	RequireAuth bool
	JWTSecret   string
	// Hang, when set, holds requests until the server closes. For
	// exercising abandonment paths.
	Hang bool
}

// StubTarget is a controllable HTTP endpoint for exercising the engine. It
// tracks request counts and the highest observed in-flight concurrency so
// tests can assert the driver's cap.
type StubTarget struct {
	*httptest.Server
	opts StubTargetOptions

	hits          atomic.Int64
	inflight      atomic.Int64
	maxConcurrent atomic.Int64
	hangCh        chan struct{}
	closeOnce     sync.Once
}

// NewStubTarget starts the stub on an ephemeral port.
func NewStubTarget(opts StubTargetOptions) *StubTarget {
	if opts.Status == 0 {
		opts.Status = http.StatusOK
	}

	stub := &StubTarget{
		opts:   opts,
		hangCh: make(chan struct{}),
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Any("/load", stub.handle)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	stub.Server = httptest.NewServer(router)
	return stub
}

func (s *StubTarget) handle(c *gin.Context) {
	n := s.hits.Add(1)

	cur := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		max := s.maxConcurrent.Load()
		if cur <= max || s.maxConcurrent.CompareAndSwap(max, cur) {
			break
		}
	}

	if s.opts.Hang {
		<-s.hangCh
		return
	}

	if s.opts.RequireAuth && !s.authorized(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing token"})
		return
	}

	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}

	if s.opts.FailEvery > 0 && n%int64(s.opts.FailEvery) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
		return
	}

	c.JSON(s.opts.Status, gin.H{"ok": true, "request": n})
}

func (s *StubTarget) authorized(c *gin.Context) bool {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return false
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err == nil && token.Valid
}

// Hits returns how many requests the stub has received.
func (s *StubTarget) Hits() int64 {
	return s.hits.Load()
}

// MaxConcurrent returns the highest number of simultaneous in-flight
// requests observed.
func (s *StubTarget) MaxConcurrent() int64 {
	return s.maxConcurrent.Load()
}

// Close releases hanging requests and shuts the server down.
func (s *StubTarget) Close() {
	s.closeOnce.Do(func() {
		close(s.hangCh)
	})
	s.Server.Close()
}
