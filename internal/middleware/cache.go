package middleware

import "github.com/gin-gonic/gin"

const (
	cacheStatusKey = "cache_hit"

	// CacheHeader reports whether a dashboard payload came from the cache.
	CacheHeader = "X-Cache"
)

// SetCacheHit records the cache outcome on the context and the response headers.
func SetCacheHit(c *gin.Context, hit bool) {
	c.Set(cacheStatusKey, hit)
	if hit {
		c.Header(CacheHeader, "HIT")
		return
	}
	c.Header(CacheHeader, "MISS")
}

