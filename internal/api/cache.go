package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ngmaloney/weatherd/internal/respcache"
)

// serveCached renders build's result through the response cache of spec
// §4.8: a cache hit is served with its stored ETag and Cache-Control
// header, honouring If-None-Match with a bodyless 304; a miss calls build,
// stores the result, and serves it fresh. A two-concurrent-fills race is
// tolerated per spec §5 (last writer wins, no single-flight).
func serveCached(w http.ResponseWriter, r *http.Request, cache *respcache.Cache, key string, maxAge, stale time.Duration, build func() (interface{}, error)) error {
	entry, ok := cache.Get(key)
	if !ok || entry.Expired(time.Now()) {
		v, err := build()
		if err != nil {
			return err
		}
		body, err := json.Marshal(v)
		if err != nil {
			return err
		}
		entry = cache.Set(key, body, "application/json", maxAge, stale)
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == entry.ETag {
		w.Header().Set("ETag", entry.ETag)
		w.Header().Set("Cache-Control", entry.CacheControl())
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.Header().Set("ETag", entry.ETag)
	w.Header().Set("Cache-Control", entry.CacheControl())
	w.Header().Set("Content-Type", entry.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Body)
	return nil
}

const (
	defaultMaxAge = 60 * time.Second
	defaultStale  = 5 * time.Minute
)
