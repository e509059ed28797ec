package main

import (
	"flag"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// stubtarget is a standalone HTTP target with controllable latency and
// failure injection, for exercising the engine without a real service.
func main() {
	var (
		port      = flag.Int("port", 9000, "Listen port")
		latency   = flag.Duration("latency", 100*time.Millisecond, "Response latency")
		failEvery = flag.Int("fail-every", 0, "Return 500 on every n-th request (0 disables)")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var hits atomic.Int64

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.Any("/load", func(c *gin.Context) {
		n := hits.Add(1)
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *failEvery > 0 && n%int64(*failEvery) == 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "injected failure"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "request": n})
	})

	addr := fmt.Sprintf(":%d", *port)
	logrus.WithFields(logrus.Fields{
		"addr":       addr,
		"latency":    *latency,
		"fail_every": *failEvery,
	}).Info("Stub target listening")

	if err := router.Run(addr); err != nil {
		logrus.WithError(err).Fatal("Stub target failed")
	}
}
