package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HMACAuth returns a Gin middleware enforcing signed requests. The client
// sends X-API-Ts (ms epoch), X-API-Key, and X-API-Sign, where the signature
// is HMAC-SHA256 over "ts:METHOD:path:body" keyed with the shared API key.
// A server with no key configured rejects everything with 500: auth is
// fail-closed, never silently disabled.
func HMACAuth(serverKey string, maxSkew time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serverKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server API key not configured"})
			return
		}

		ts := c.GetHeader("X-API-Ts")
		key := c.GetHeader("X-API-Key")
		sign := c.GetHeader("X-API-Sign")
		if ts == "" || key == "" || sign == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing auth headers"})
			return
		}

		tsMillis, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid timestamp"})
			return
		}
		skew := time.Since(time.UnixMilli(tsMillis))
		if skew < 0 {
			skew = -skew
		}
		if skew > maxSkew {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "timestamp outside allowed window"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(serverKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		payload := fmt.Sprintf("%s:%s:%s:%s", ts, c.Request.Method, c.Request.URL.Path, body)
		mac := hmac.New(sha256.New, []byte(serverKey))
		mac.Write([]byte(payload))
		expected := hex.EncodeToString(mac.Sum(nil))

		if subtle.ConstantTimeCompare([]byte(sign), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Next()
	}
}
