package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/walidhousni/glavito-sub011/pkg/logx"
	"github.com/walidhousni/glavito-sub011/pkg/metrics"
)

const (
	tenantHeader = "X-Tenant-ID"
	tenantKey    = "tenant_id"
)

func Observability() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid := c.Request.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", rid)

		c.Set("request_id", rid)
		c.Next()

		lat := time.Since(start).Seconds()
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, path).Observe(lat)

		logx.L().Infow("http_access",
			"rid", rid,
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", lat,
			"tenant_id", c.GetString(tenantKey),
			"client_ip", c.ClientIP(),
		)
	}
}

// Tenant requires the X-Tenant-ID header and stores it on the context.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := strings.TrimSpace(c.GetHeader(tenantHeader))
		if t == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + tenantHeader + " header"})
			return
		}
		c.Set(tenantKey, t)
		c.Next()
	}
}

func tenantID(c *gin.Context) string { return c.GetString(tenantKey) }
