package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/conference-companion/internal/model"
	"github.com/iliyamo/conference-companion/internal/utils"
)

func TestUserCreateAndLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	id, err := repo.Create(ctx, "  Alice@Example.com ", "secret123", model.RoleAttendee, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Create(ctx, "alice@example.com", "other", model.RoleAttendee, 4); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate err = %v", err)
	}

	u, err := repo.GetByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != id || u.Role != model.RoleAttendee || !u.IsActive {
		t.Errorf("user = %+v", u)
	}
	if !utils.VerifyPassword(u.PasswordHash, "secret123") {
		t.Error("stored hash does not verify")
	}
	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(999) err = %v", err)
	}
}

func TestRefreshTokens(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()

	if err := repo.StoreRefresh(ctx, 1, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.StoreRefresh(ctx, 1, "expired", time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	if uid, err := repo.ValidateRefresh(ctx, "live"); err != nil || uid != 1 {
		t.Errorf("ValidateRefresh(live) = %d, %v", uid, err)
	}
	if _, err := repo.ValidateRefresh(ctx, "expired"); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("expired token err = %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "unknown"); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("unknown token err = %v", err)
	}

	if err := repo.RevokeAllForUser(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ValidateRefresh(ctx, "live"); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("revoked token err = %v", err)
	}
}

func TestRotateRefresh(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepo(db)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	if err := repo.StoreRefresh(ctx, 3, "first", exp); err != nil {
		t.Fatal(err)
	}
	uid, err := repo.Rotate(ctx, "first", "second", exp)
	if err != nil || uid != 3 {
		t.Fatalf("Rotate = %d, %v", uid, err)
	}
	if _, err := repo.Rotate(ctx, "first", "third", exp); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("second rotation of the same token err = %v", err)
	}
	if _, err := repo.ValidateRefresh(ctx, "third"); !errors.Is(err, ErrRefreshInvalid) {
		t.Errorf("failed rotation stored its token: %v", err)
	}
	if uid, err := repo.ValidateRefresh(ctx, "second"); err != nil || uid != 3 {
		t.Errorf("rotated token = %d, %v", uid, err)
	}

	// Tokens revoked or expired before the cutoff are purged.
	n, err := repo.PurgeExpired(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Errorf("PurgeExpired = %d, %v", n, err)
	}
}
