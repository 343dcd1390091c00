package users

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/foodgram/internal/apperror"
	"github.com/MarcoPoloResearchLab/foodgram/internal/auth"
	sqlite "github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixedIDProvider struct {
	ids  []string
	next int
}

func (p *fixedIDProvider) NewID() (string, error) {
	if p.next >= len(p.ids) {
		return "", errors.New("no more ids")
	}
	id := p.ids[p.next]
	p.next++
	return id, nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestService(t *testing.T, clock *testClock, idProvider IDProvider) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &AuthToken{}); err != nil {
		t.Fatalf("failed to migrate users schema: %v", err)
	}
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("secret"),
		Issuer:        "foodgram-auth",
		Audience:      "foodgram-api",
		TokenTTL:      time.Hour,
		Clock:         clock.Now,
	})
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:     db,
		TokenIssuer:  issuer,
		IDProvider:   idProvider,
		Clock:        clock.Now,
		PasswordCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func registerInput(email, username string) RegisterInput {
	return RegisterInput{
		Email:     email,
		Username:  username,
		FirstName: "Ivan",
		LastName:  "Petrov",
		Password:  "s3cret-pass",
	}
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	if _, err := NewService(ServiceConfig{}); err == nil {
		t.Fatalf("expected error without database")
	}
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if _, err := NewService(ServiceConfig{Database: db}); err == nil {
		t.Fatalf("expected error without token issuer")
	}
}

func TestRegisterNormalizesAndRejectsDuplicates(t *testing.T) {
	clock := &testClock{now: time.Now()}
	service, _ := newTestService(t, clock, nil)
	ctx := context.Background()

	user, err := service.Register(ctx, registerInput(" Ivan@Example.COM ", "ivan"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ivan@example.com" {
		t.Fatalf("expected lower-cased email, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret-pass" {
		t.Fatalf("expected password to be hashed")
	}

	_, err = service.Register(ctx, registerInput("IVAN@example.com", "other"))
	var serviceErr *apperror.ServiceError
	if !errors.As(err, &serviceErr) || !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := serviceErr.Fields()["email"]; !ok {
		t.Fatalf("expected email field error, got %v", serviceErr.Fields())
	}

	_, err = service.Register(ctx, registerInput("second@example.com", "ivan"))
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}
	if _, ok := serviceErr.Fields()["username"]; !ok {
		t.Fatalf("expected username field error, got %v", serviceErr.Fields())
	}
}

func TestRegisterValidatesInput(t *testing.T) {
	clock := &testClock{now: time.Now()}
	service, _ := newTestService(t, clock, nil)

	testCases := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{name: "bad-email", input: RegisterInput{Email: "nope", Username: "a", FirstName: "a", LastName: "b", Password: "s3cret-pass"}, field: "email"},
		{name: "bad-username", input: RegisterInput{Email: "a@b.co", Username: "with space", FirstName: "a", LastName: "b", Password: "s3cret-pass"}, field: "username"},
		{name: "short-password", input: RegisterInput{Email: "a@b.co", Username: "a", FirstName: "a", LastName: "b", Password: "short"}, field: "password"},
		{name: "numeric-password", input: RegisterInput{Email: "a@b.co", Username: "a", FirstName: "a", LastName: "b", Password: "1234567890"}, field: "password"},
		{name: "missing-last-name", input: RegisterInput{Email: "a@b.co", Username: "a", FirstName: "a", Password: "s3cret-pass"}, field: "last_name"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), testCase.input)
			var serviceErr *apperror.ServiceError
			if !errors.As(err, &serviceErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := serviceErr.Fields()[testCase.field]; !ok {
				t.Fatalf("expected %s field error, got %v", testCase.field, serviceErr.Fields())
			}
		})
	}
}

func TestLoginAuthenticateLogout(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	service, db := newTestService(t, clock, &fixedIDProvider{ids: []string{"token-1"}})
	ctx := context.Background()

	registered, err := service.Register(ctx, registerInput("cook@example.com", "cook"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := service.Login(ctx, LoginInput{Email: "cook@example.com", Password: "wrong-pass"}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for wrong password, got %v", err)
	}
	if _, err := service.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "s3cret-pass"}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for unknown email, got %v", err)
	}

	issued, err := service.Login(ctx, LoginInput{Email: "COOK@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	user, claims, err := service.Authenticate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.ID != registered.ID || claims.TokenID != "token-1" {
		t.Fatalf("unexpected identity %d / %q", user.ID, claims.TokenID)
	}

	if err := service.Logout(ctx, claims.TokenID); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	var remaining int64
	db.Model(&AuthToken{}).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("expected token row to be removed, got %d", remaining)
	}
	if _, _, err := service.Authenticate(ctx, issued.Token); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
}

func TestAuthenticateRejectsExpiredAndGarbageTokens(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	service, _ := newTestService(t, clock, nil)
	ctx := context.Background()

	if _, err := service.Register(ctx, registerInput("cook@example.com", "cook")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	issued, err := service.Login(ctx, LoginInput{Email: "cook@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, _, err := service.Authenticate(ctx, "garbage"); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Fatalf("expected garbage token to be rejected, got %v", err)
	}

	clock.now = clock.now.Add(2 * time.Hour)
	_, _, err = service.Authenticate(ctx, issued.Token)
	if !errors.Is(err, apperror.ErrUnauthenticated) || !errors.Is(err, auth.ErrExpiredToken) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestSetPasswordRevokesTokens(t *testing.T) {
	clock := &testClock{now: time.Now()}
	service, _ := newTestService(t, clock, nil)
	ctx := context.Background()

	user, err := service.Register(ctx, registerInput("cook@example.com", "cook"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	first, err := service.Login(ctx, LoginInput{Email: "cook@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err = service.SetPassword(ctx, user.ID, PasswordChange{CurrentPassword: "not-it-at-all", NewPassword: "another-pass"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected wrong current password to fail validation, got %v", err)
	}

	if err := service.SetPassword(ctx, user.ID, PasswordChange{CurrentPassword: "s3cret-pass", NewPassword: "another-pass"}); err != nil {
		t.Fatalf("set password failed: %v", err)
	}
	if _, _, err := service.Authenticate(ctx, first.Token); !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Fatalf("expected old token to be revoked, got %v", err)
	}
	if _, err := service.Login(ctx, LoginInput{Email: "cook@example.com", Password: "another-pass"}); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	clock := &testClock{now: time.Now()}
	service, _ := newTestService(t, clock, nil)
	ctx := context.Background()

	first, err := service.Register(ctx, registerInput("first@example.com", "first"))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.Register(ctx, registerInput("second@example.com", "second")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	taken := "second"
	if _, err := service.UpdateProfile(ctx, first.ID, ProfileUpdate{Username: &taken}); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected duplicate username to be rejected, got %v", err)
	}

	name := "  Anna "
	updated, err := service.UpdateProfile(ctx, first.ID, ProfileUpdate{FirstName: &name})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.FirstName != "Anna" || updated.LastName != "Petrov" || updated.Username != "first" {
		t.Fatalf("unexpected profile %#v", updated)
	}

	if _, err := service.UpdateProfile(ctx, 999, ProfileUpdate{FirstName: &name}); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	clock := &testClock{now: time.Now()}
	service, _ := newTestService(t, clock, nil)
	ctx := context.Background()
	for _, username := range []string{"a", "b", "c"} {
		if _, err := service.Register(ctx, registerInput(username+"@example.com", username)); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}

	page, total, err := service.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].Username != "b" {
		t.Fatalf("unexpected page %#v (total %d)", page, total)
	}
}
