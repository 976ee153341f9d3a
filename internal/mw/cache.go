package mw

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"chemviz-backend/internal/model"
)

// CacheStatusHeader reports whether a response was served from the cache.
const CacheStatusHeader = "X-Cache"

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache is a middleware for in-memory caching of GET requests.
func Cache(store *cache.Cache, duration time.Duration) gin.HandlerFunc {
	return cacheHandler(store, duration, nil)
}

// commitGeneration counts commits. Bumping it and flushing the cache happen
// under the same lock as the check-and-store of a response.
type commitGeneration struct {
	mu  sync.Mutex
	gen uint64
}

func (g *commitGeneration) current() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gen
}

// storeIf runs set only when no commit happened since gen was read.
func (g *commitGeneration) storeIf(gen uint64, set func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen == gen {
		set()
	}
}

func (g *commitGeneration) bump(flush func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	flush()
}

// cacheHandler caches GET responses. With a generation, a response computed
// while a commit landed is served but not stored.
func cacheHandler(store *cache.Cache, duration time.Duration, generation *commitGeneration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if resp, found := store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set(CacheStatusHeader, "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		var gen uint64
		if generation != nil {
			gen = generation.current()
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Header(CacheStatusHeader, "MISS")

		c.Next()

		// Only cache successful responses
		if blw.Status() != http.StatusOK {
			return
		}
		response := cachedResponse{
			status:  blw.Status(),
			headers: blw.Header().Clone(),
			body:    blw.body.Bytes(),
		}
		if generation == nil {
			store.Set(key, response, duration)
			return
		}
		generation.storeIf(gen, func() { store.Set(key, response, duration) })
	}
}

// ResponseCache holds cached GET responses that stay valid until the next
// committed dataset.
type ResponseCache struct {
	store      *cache.Cache
	ttl        time.Duration
	generation commitGeneration
}

// NewResponseCache creates a cache whose entries expire after ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Handler returns the caching middleware.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return cacheHandler(rc.store, rc.ttl, &rc.generation)
}

// DatasetCommitted drops every cached response. Registered as a commit
// listener, so no reader sees a summary older than the latest commit.
func (rc *ResponseCache) DatasetCommitted(*model.Dataset) {
	rc.generation.bump(rc.store.Flush)
}
