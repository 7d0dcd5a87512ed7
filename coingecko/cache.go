package coingecko

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// memCache is an http.RoundTripper caching successful GET responses in memory for ttl.
type memCache struct {
	base  http.RoundTripper
	cache *ristretto.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func newMemCache(base http.RoundTripper, ttl time.Duration, log *zap.Logger) (*memCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26, // ~64MB of dumped responses
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &memCache{base: base, cache: c, ttl: ttl, log: log}, nil
}

func (c *memCache) RoundTrip(req *http.Request) (resp *http.Response, err error) {
	if req.Method != http.MethodGet {
		return c.base.RoundTrip(req)
	}
	key := fmt.Sprintf("%x", sha1.Sum([]byte(req.Method+" "+req.URL.String())))

	if cachedResp, err := c.get(key, req); err == nil { // Cache hit
		return cachedResp, nil
	}

	resp, err = c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	c.log.Debug("http", zap.String("method", req.Method), zap.String("host", req.URL.Host), zap.String("path", req.URL.Path), zap.String("status", resp.Status))
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	// otherwise attempt to store it in cache
	if err := c.put(key, resp); err != nil {
		c.log.Warn("cache write err (ignored)", zap.Error(err))
	}
	return resp, nil
}

// get retrieves a cached response.
func (c *memCache) get(key string, req *http.Request) (*http.Response, error) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, fmt.Errorf("cache miss")
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(v.([]byte))), req)
}

// put stores a response. The response body remains readable by the caller.
func (c *memCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	c.cache.SetWithTTL(key, content, int64(len(content)), c.ttl)
	c.cache.Wait()
	return nil
}

func (c *memCache) Close() { c.cache.Close() }
