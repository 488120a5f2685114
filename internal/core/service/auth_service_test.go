package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/meterline/subscription-service/internal/core/domain"
)

const strongPass = "S3cret!pass"

func newAuthSvc(repo *stubUserRepo, mailer *stubMailer) *AuthService {
	return NewAuthService(repo, mailer, AuthConfig{
		JWTSecret: "secret",
		TokenTTL:  time.Hour,
		ClientURL: "https://app.example.com/",
	}, zerolog.Nop())
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, &stubMailer{})

	token, user, err := svc.Register(context.Background(), " Alice@Example.com ", strongPass)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token == "" || user == nil {
		t.Fatalf("expected token and user")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalised: %s", user.Email)
	}
	if user.SubscriptionStatus != domain.StatusInactive || user.UsageCount != 0 || user.ResetDate != nil {
		t.Fatalf("new user must be inactive with no usage: %+v", user)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(strongPass)); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), &stubMailer{})

	if _, _, err := svc.Register(context.Background(), "", strongPass); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "bob@example.com", "weakpass"); err != domain.ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), &stubMailer{})

	_, _, _ = svc.Register(context.Background(), "bob@example.com", strongPass)
	if _, _, err := svc.Register(context.Background(), "BOB@example.com", strongPass); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), &stubMailer{})

	_, registered, err := svc.Register(context.Background(), "carol@example.com", strongPass)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "carol@example.com", strongPass)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("unexpected user: %+v", user)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if sub, _ := claims.GetSubject(); sub != registered.ID {
		t.Fatalf("expected sub %s, got %s", registered.ID, sub)
	}
	if claims["email"] != "carol@example.com" {
		t.Fatalf("unexpected email claim: %v", claims["email"])
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo(), &stubMailer{})
	_, _, _ = svc.Register(context.Background(), "dave@example.com", strongPass)

	if _, _, err := svc.Login(context.Background(), "dave@example.com", "Wr0ng!pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ghost@example.com", strongPass); err != domain.ErrInvalidCredentials {
		t.Fatalf("unknown user must look like bad credentials, got %v", err)
	}
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	repo := newStubUserRepo()
	mailer := &stubMailer{}
	svc := newAuthSvc(repo, mailer)

	_, user, _ := svc.Register(context.Background(), "erin@example.com", strongPass)

	if err := svc.RequestPasswordReset(context.Background(), "erin@example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if len(mailer.links) != 1 || mailer.to[0] != "erin@example.com" {
		t.Fatalf("expected one mail to erin, got %v", mailer.to)
	}
	link := mailer.links[0]
	if !strings.HasPrefix(link, "https://app.example.com/reset-password?token=") {
		t.Fatalf("unexpected link %s", link)
	}
	u, _ := url.Parse(link)
	token := u.Query().Get("token")

	stored := repo.get(user.ID)
	if stored.ResetTokenHash == token || stored.ResetTokenHash != hashResetToken(token) {
		t.Fatalf("expected only the token hash to be stored")
	}

	const newPass = "N3w!password"
	if err := svc.ResetPassword(context.Background(), token, newPass); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "erin@example.com", newPass); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	// Single use.
	if err := svc.ResetPassword(context.Background(), token, "An0ther!pass"); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken on reuse, got %v", err)
	}
}

func TestAuthService_ResetPassword_Expired(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, &stubMailer{})
	_, user, _ := svc.Register(context.Background(), "frank@example.com", strongPass)

	_ = repo.SetResetToken(context.Background(), user.ID, hashResetToken("tok"), time.Now().Add(-time.Minute))
	if err := svc.ResetPassword(context.Background(), "tok", "N3w!password"); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
}

func TestAuthService_ResetPassword_ConcurrentResetLoses(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, &stubMailer{})
	_, user, _ := svc.Register(context.Background(), "hana@example.com", strongPass)
	_ = repo.SetResetToken(context.Background(), user.ID, hashResetToken("tok"), time.Now().Add(time.Hour))

	// Another reset consumes the token after this one looked it up.
	repo.beforeReset = func(u *domain.User) {
		u.PasswordHash = "other"
		u.ResetTokenHash = ""
		u.ResetTokenExpiry = nil
	}

	if err := svc.ResetPassword(context.Background(), "tok", "N3w!password"); err != domain.ErrInvalidResetToken {
		t.Fatalf("expected ErrInvalidResetToken, got %v", err)
	}
	if got := repo.get(user.ID); got.PasswordHash != "other" {
		t.Fatalf("losing reset overwrote the password")
	}
}

func TestAuthService_RequestPasswordReset_MailerError(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo, &stubMailer{err: errors.New("smtp down")})
	_, _, _ = svc.Register(context.Background(), "gina@example.com", strongPass)

	if err := svc.RequestPasswordReset(context.Background(), "gina@example.com"); err == nil {
		t.Fatalf("expected mailer error")
	}
}

func TestStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"S3cret!pass": true,
		"short1!A":    true,
		"S3c!a":       false,
		"alllower1!":  false,
		"ALLUPPER1!":  false,
		"NoDigits!!":  false,
		"NoSymbol12":  false,
	}
	for in, want := range tests {
		if got := StrongPassword(in); got != want {
			t.Errorf("StrongPassword(%q) = %v, want %v", in, got, want)
		}
	}
}
