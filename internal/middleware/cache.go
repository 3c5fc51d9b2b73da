package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/conference-companion/internal/config"
    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/metrics"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
    cw.status = code
    cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    switch remain := cw.limit - cw.size; {
    case cw.limit <= 0:
        cw.buf.Write(b)
    case remain >= int64(len(b)):
        cw.buf.Write(b)
    case remain > 0:
        cw.buf.Write(b[:remain])
    }
    // size keeps counting past the limit so oversized bodies are detectable
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// Build a stable cache key honoring prefix/strategy.  Responses under
// /v1/conferences/:id are namespaced by conference id so a sync can drop
// exactly that conference's entries; everything else lands in "global".
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    route := c.Path()

    var tail string
    switch strings.ToLower(cfg.KeyStrategy) {
    case "path":
        tail = r.URL.Path
    default: // "route_query"
        tail = route + "?" + r.URL.Query().Encode()
        if route == "" {
            tail = r.URL.Path + "?" + r.URL.Query().Encode()
        }
        // Route patterns drop the concrete ids; add them back.
        for _, name := range c.ParamNames() {
            tail += "&:" + name + "=" + c.Param(name)
        }
    }
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s:%s:%x", cfg.Prefix, scopeOf(c), sum[:])
}

func scopeOf(c echo.Context) string {
    if strings.HasPrefix(c.Path(), "/v1/conferences/:id") {
        if id, err := strconv.ParseUint(c.Param("id"), 10, 64); err == nil {
            return conferenceScope(id)
        }
    }
    return "global"
}

func conferenceScope(id uint64) string { return "conf:" + strconv.FormatUint(id, 10) }

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    total := 4 + 4 + len(hdrJSON) + len(body)
    out := make([]byte, total)
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if 8+hlen > len(bs) || hlen < 0 {
        return 0, nil, nil, false
    }
    var hdr http.Header
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    } else {
        hdr = make(http.Header)
    }
    body = bs[8+hlen:]
    return status, hdr, body, true
}

// storable reports whether a fresh response may be cached: a 200 whose
// body was captured in full and which the handler did not mark no-store.
func storable(status int, size, maxBody int64, hdr http.Header) bool {
    if status != http.StatusOK || (maxBody > 0 && size > maxBody) {
        return false
    }
    return !strings.Contains(strings.ToLower(hdr.Get("Cache-Control")), "no-store")
}

// ResponseCache stores headers + body so clients see identical formatting
// (e.g., pretty JSON) as the original response.
type ResponseCache struct {
    cfg config.CacheConfig
    rdb *redis.Client
}

// NewResponseCache returns a cache bound to rdb.  rdb may be nil, in which
// case the middleware passes requests through and eviction is a no-op.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
    if cfg.TTL <= 0 {
        cfg.TTL = 5 * time.Minute
    }
    return &ResponseCache{cfg: cfg, rdb: rdb}
}

// EvictConference deletes every cached response of one conference plus
// the global entries (the conference list embeds sync state).  It returns
// the number of keys removed.
func (rc *ResponseCache) EvictConference(ctx context.Context, conferenceID uint64) (int, error) {
    if rc.rdb == nil {
        return 0, nil
    }
    total := 0
    for _, scope := range []string{conferenceScope(conferenceID), "global"} {
        n, err := rc.deleteMatching(ctx, rc.cfg.Prefix+":"+scope+":*")
        total += n
        if err != nil {
            return total, err
        }
    }
    metrics.ResponseCacheEvictions.Add(float64(total))
    return total, nil
}

func (rc *ResponseCache) deleteMatching(ctx context.Context, pattern string) (int, error) {
    n := 0
    iter := rc.rdb.Scan(ctx, 0, pattern, 200).Iterator()
    var batch []string
    for iter.Next(ctx) {
        batch = append(batch, iter.Val())
        if len(batch) == 200 {
            if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
                return n, err
            }
            n += len(batch)
            batch = batch[:0]
        }
    }
    if err := iter.Err(); err != nil {
        return n, err
    }
    if len(batch) > 0 {
        if err := rc.rdb.Del(ctx, batch...).Err(); err != nil {
            return n, err
        }
        n += len(batch)
    }
    return n, nil
}

// Middleware serves cached responses and stores fresh 200 responses.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
    cfg, rdb := rc.cfg, rc.rdb
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    ttl := cfg.TTL
    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }

            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            // Try get from Redis
            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil && len(bs) >= 8 {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    // Restore headers (except hop-by-hop)
                    for k, vals := range hdr {
                        // X-Cache and X-Request-Id belong to this request; Content-Length is recomputed by Echo
                        if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "X-Cache") || strings.EqualFold(k, echo.HeaderXRequestID) {
                            continue
                        }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    metrics.ResponseCacheHits.Inc()
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            }

            // Miss: capture
            metrics.ResponseCacheMisses.Inc()
            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if storable(cw.status, cw.size, maxBody, c.Response().Header()) {
                hdr := make(http.Header, len(c.Response().Header()))
                for k, vals := range c.Response().Header() {
                    vv := make([]string, len(vals))
                    copy(vv, vals)
                    hdr[k] = vv
                }
                if payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes()); err == nil {
                    if err := rdb.SetEx(context.Background(), key, payload, ttl).Err(); err != nil {
                        logging.Ctx(ctx).Warn().Err(err).Msg("response cache write failed")
                    }
                }
            }
            return nil
        }
    }
}
