package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/conference-companion/internal/config"
    "github.com/iliyamo/conference-companion/internal/logging"
    "github.com/iliyamo/conference-companion/internal/model"
    "github.com/iliyamo/conference-companion/internal/utils"
)

const secret = "test-secret"

func protected(mw ...echo.MiddlewareFunc) *echo.Echo {
    e := echo.New()
    e.GET("/me", func(c echo.Context) error {
        id, ok := UserID(c)
        if !ok {
            return c.String(http.StatusInternalServerError, "no id")
        }
        return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
    }, mw...)
    return e
}

func do(e *echo.Echo, auth string) *httptest.ResponseRecorder {
    req := httptest.NewRequest(http.MethodGet, "/me", nil)
    if auth != "" {
        req.Header.Set("Authorization", auth)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func TestJWTAuth(t *testing.T) {
    e := protected(JWTAuth(secret))

    tok, err := utils.NewAccessToken(secret, 42, model.RoleAttendee, 5)
    if err != nil {
        t.Fatal(err)
    }
    rec := do(e, "Bearer "+tok.Token)
    if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":42`) {
        t.Fatalf("valid token: %d %s", rec.Code, rec.Body)
    }

    forged, _ := utils.NewAccessToken("other-secret", 42, model.RoleAdmin, 5)
    none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42", "role": model.RoleAdmin, "iss": utils.Issuer})
    foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42", "role": model.RoleAdmin, "exp": 4102444800})
    noIssuer, _ := foreign.SignedString([]byte(secret))
    unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
    expired, _ := utils.NewAccessToken(secret, 42, model.RoleAttendee, -1)

    tests := []struct {
        name string
        auth string
    }{
        {"missing", ""},
        {"not bearer", "Basic abc"},
        {"wrong secret", "Bearer " + forged.Token},
        {"alg none", "Bearer " + unsigned},
        {"expired", "Bearer " + expired.Token},
        {"no issuer", "Bearer " + noIssuer},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            if rec := do(e, tt.auth); rec.Code != http.StatusUnauthorized {
                t.Errorf("status = %d", rec.Code)
            }
        })
    }
}

func TestRequireRole(t *testing.T) {
    e := protected(JWTAuth(secret), RequireRole(model.RoleAdmin))

    admin, _ := utils.NewAccessToken(secret, 1, model.RoleAdmin, 5)
    attendee, _ := utils.NewAccessToken(secret, 2, model.RoleAttendee, 5)
    if rec := do(e, "Bearer "+admin.Token); rec.Code != http.StatusOK {
        t.Errorf("admin status = %d", rec.Code)
    }
    if rec := do(e, "Bearer "+attendee.Token); rec.Code != http.StatusForbidden {
        t.Errorf("attendee status = %d", rec.Code)
    }

    bare := protected(RequireRole(model.RoleAdmin))
    if rec := do(bare, ""); rec.Code != http.StatusUnauthorized {
        t.Errorf("anonymous status = %d", rec.Code)
    }
}

func TestRequestID(t *testing.T) {
    e := echo.New()
    e.Use(RequestID(), AccessLog())
    var seen string
    e.GET("/ping", func(c echo.Context) error {
        seen = logging.RequestIDFromContext(c.Request().Context())
        return c.NoContent(http.StatusNoContent)
    })

    req := httptest.NewRequest(http.MethodGet, "/ping", nil)
    req.Header.Set(echo.HeaderXRequestID, "upstream-1")
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    if seen != "upstream-1" || rec.Header().Get(echo.HeaderXRequestID) != "upstream-1" {
        t.Errorf("request id = %q / %q", seen, rec.Header().Get(echo.HeaderXRequestID))
    }

    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
    if len(seen) != 36 || rec.Header().Get(echo.HeaderXRequestID) != seen {
        t.Errorf("generated id = %q", seen)
    }
}

func TestCacheKeyScope(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cc:cache", KeyStrategy: "route_query"}
    e := echo.New()
    keys := map[string]string{}
    record := func(c echo.Context) error {
        keys[c.Request().URL.String()] = cacheKeyFrom(cfg, c)
        return c.NoContent(http.StatusOK)
    }
    e.GET("/v1/conferences", record)
    e.GET("/v1/conferences/:id/events", record)

    for _, u := range []string{
        "/v1/conferences",
        "/v1/conferences/7/events?track=1&language=en",
        "/v1/conferences/7/events?language=en&track=1",
        "/v1/conferences/8/events?track=1&language=en",
    } {
        e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, u, nil))
    }

    if k := keys["/v1/conferences"]; !strings.HasPrefix(k, "cc:cache:global:") {
        t.Errorf("list key = %s", k)
    }
    a := keys["/v1/conferences/7/events?track=1&language=en"]
    b := keys["/v1/conferences/7/events?language=en&track=1"]
    c := keys["/v1/conferences/8/events?track=1&language=en"]
    if !strings.HasPrefix(a, "cc:cache:conf:7:") || !strings.HasPrefix(c, "cc:cache:conf:8:") {
        t.Errorf("scoped keys = %s, %s", a, c)
    }
    if a != b {
        t.Error("query order should not change the key")
    }
    if a[len("cc:cache:conf:7:"):] == c[len("cc:cache:conf:8:"):] {
        t.Error("different conferences share a digest")
    }
}

func TestWithoutRedisPassThrough(t *testing.T) {
    rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
    if n, err := rc.EvictConference(context.Background(), 1); n != 0 || err != nil {
        t.Errorf("evict without redis = %d, %v", n, err)
    }
    e := echo.New()
    e.Use(rc.Middleware(), NewRateLimiter(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil).Middleware())
    e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
    for i := 0; i < 3; i++ {
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
        if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
            t.Fatalf("request %d: %d cache=%q", i, rec.Code, rec.Header().Get("X-Cache"))
        }
    }
}

func TestCaptureWriterLimit(t *testing.T) {
    rec := httptest.NewRecorder()
    cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}
    _, _ = cw.Write([]byte("0123456789"))
    _, _ = cw.Write([]byte("abcde"))
    if cw.buf.String() != "0123456789" || cw.size != 15 {
        t.Errorf("buf = %q size = %d", cw.buf.String(), cw.size)
    }
    if rec.Body.String() != "0123456789abcde" {
        t.Errorf("client body = %q", rec.Body.String())
    }
}

func TestStorable(t *testing.T) {
    jsonHdr := http.Header{"Content-Type": {"application/json"}}
    tests := []struct {
        name   string
        status int
        size   int64
        hdr    http.Header
        want   bool
    }{
        {"ok", http.StatusOK, 10, jsonHdr, true},
        {"no limit", http.StatusOK, 1 << 30, jsonHdr, true},
        {"not found", http.StatusNotFound, 10, jsonHdr, false},
        {"truncated", http.StatusOK, 101, jsonHdr, false},
        {"no-store", http.StatusOK, 10, http.Header{"Cache-Control": {"no-store"}}, false},
        {"private, no-store", http.StatusOK, 10, http.Header{"Cache-Control": {"private, No-Store"}}, false},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            limit := int64(100)
            if tt.name == "no limit" {
                limit = 0
            }
            if got := storable(tt.status, tt.size, limit, tt.hdr); got != tt.want {
                t.Errorf("storable = %v", got)
            }
        })
    }
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
    if err != nil {
        t.Fatal(err)
    }
    status, got, body, ok := decodePayload(bs)
    if !ok || status != 200 || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
        t.Errorf("decoded %d %v %q %v", status, got, body, ok)
    }
    if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
        t.Error("short payload accepted")
    }
}

func TestRateKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/v1/conferences/3/events", nil)
    req.RemoteAddr = "10.0.0.1:1234"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/v1/conferences/:id/events")

    cfg := config.RateLimitConfig{Prefix: "cc:rl", KeyStrategy: "caller_route"}
    if k := rateKey(cfg, c); k != "cc:rl:ip:10.0.0.1:GET /v1/conferences/:id/events" {
        t.Errorf("anonymous key = %s", k)
    }
    c.Set(ctxUserID, uint64(42))
    cfg.KeyStrategy = "caller"
    if k := rateKey(cfg, c); k != "cc:rl:u:42" {
        t.Errorf("user key = %s", k)
    }
}
