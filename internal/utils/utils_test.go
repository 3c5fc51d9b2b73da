package utils

import (
    "errors"
    "strconv"
    "strings"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestParseEventDate(t *testing.T) {
    start, loc, err := ParseEventDate("2012-09-18T09:30:00+0200")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if loc.String() != "GMT+0200" {
        t.Errorf("location = %s, want GMT+0200", loc)
    }
    if got := start.UTC().Format(time.RFC3339); got != "2012-09-18T07:30:00Z" {
        t.Errorf("UTC start = %s", got)
    }
    if start.Hour() != 9 {
        t.Errorf("wall clock hour = %d, want 9", start.Hour())
    }
    if got := SortKey(start); got != "2012-09-18 07:30:00" {
        t.Errorf("sort key = %s", got)
    }
    end := EventEnd(start, 45)
    if end.Sub(start) != 45*time.Minute {
        t.Errorf("end - start = %s", end.Sub(start))
    }
}

func TestParseEventDateNegativeOffset(t *testing.T) {
    start, loc, err := ParseEventDate("2013-10-01T18:00:00-0600")
    if err != nil {
        t.Fatal(err)
    }
    if loc.String() != "GMT-0600" {
        t.Errorf("location = %s", loc)
    }
    if SortKey(start) != "2013-10-02 00:00:00" {
        t.Errorf("sort key = %s", SortKey(start))
    }
}

func TestParseEventDateInvalid(t *testing.T) {
    for _, in := range []string{"", "tomorrow", "2012-09-18 09:30:00", "2012-09-18T09:30:00Z"} {
        if _, _, err := ParseEventDate(in); err == nil {
            t.Errorf("ParseEventDate(%q) expected error", in)
        }
    }
}

func TestAccessTokenClaims(t *testing.T) {
    tok, err := NewAccessToken("secret", 42, "ADMIN", 5)
    if err != nil {
        t.Fatal(err)
    }
    parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
    if err != nil || !parsed.Valid {
        t.Fatalf("token did not verify: %v", err)
    }
    claims := parsed.Claims.(jwt.MapClaims)
    if claims["sub"] != strconv.Itoa(42) || claims["role"] != "ADMIN" {
        t.Errorf("claims = %v", claims)
    }
    if time.Until(tok.Exp) > 5*time.Minute {
        t.Errorf("expiry too far in the future: %s", tok.Exp)
    }
}

func TestRefreshTokenHash(t *testing.T) {
    a, err := NewRefreshToken(1)
    if err != nil {
        t.Fatal(err)
    }
    b, _ := NewRefreshToken(1)
    if len(a.Raw) != 96 || a.Raw == b.Raw {
        t.Errorf("refresh tokens should be 96 hex chars and unique")
    }
    if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) || len(HashRefreshRaw(a.Raw)) != 64 {
        t.Error("hash must be stable 64 hex chars")
    }
}

func TestPasswordRoundTrip(t *testing.T) {
    hash, err := HashPassword("hunter2", 4)
    if err != nil {
        t.Fatal(err)
    }
    if !VerifyPassword(hash, "hunter2") || VerifyPassword(hash, "wrong") {
        t.Error("bcrypt verification mismatch")
    }
}

func TestCheckPassword(t *testing.T) {
    for _, tc := range []struct {
        pw   string
        weak bool
    }{
        {"short", true},
        {"correct horse", false},
        {strings.Repeat("x", 72), false},
        {strings.Repeat("x", 73), true},
    } {
        err := CheckPassword(tc.pw)
        if got := errors.Is(err, ErrWeakPassword); got != tc.weak {
            t.Errorf("CheckPassword(len %d) = %v", len(tc.pw), err)
        }
    }
}

func TestParseAccessToken(t *testing.T) {
    tok, _ := NewAccessToken("secret", 7, "ATTENDEE", 5)
    uid, role, err := ParseAccessToken("secret", tok.Token)
    if err != nil || uid != 7 || role != "ATTENDEE" {
        t.Fatalf("got %d %q %v", uid, role, err)
    }
    if _, _, err := ParseAccessToken("other", tok.Token); !errors.Is(err, ErrInvalidToken) {
        t.Errorf("wrong secret err = %v", err)
    }

    zero, _ := NewAccessToken("secret", 0, "ATTENDEE", 5)
    if _, _, err := ParseAccessToken("secret", zero.Token); !errors.Is(err, ErrInvalidToken) {
        t.Errorf("zero subject err = %v", err)
    }
}

func TestBearerToken(t *testing.T) {
    tests := []struct {
        header string
        want   string
        ok     bool
    }{
        {"Bearer abc", "abc", true},
        {"Bearer  abc ", "abc", true},
        {"Bearer ", "", false},
        {"Basic abc", "", false},
        {"", "", false},
    }
    for _, tt := range tests {
        got, ok := BearerToken(tt.header)
        if got != tt.want || ok != tt.ok {
            t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, ok)
        }
    }
}
