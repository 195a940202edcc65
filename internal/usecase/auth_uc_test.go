package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
)

func newAuthUC(users *fakeUserRepo, tokens *fakeTokenRepo, throttle *fakeThrottle) *authUC {
	l := zerolog.Nop()
	return NewAuthUseCase(users, tokens, fakeTM{}, throttle, AdminBootstrap{Username: "admin", Password: "s3cret"}, &l)
}

func seedUser(t *testing.T, users *fakeUserRepo, username, password string, expiresAt time.Time) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	u, err := model.NewUser("", username, string(hash), model.RoleRegularUser, expiresAt)
	if err != nil {
		t.Fatal(err)
	}
	if err := users.Save(context.Background(), nil, u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestLoginBootstrapsAdmin(t *testing.T) {
	users := newFakeUserRepo()
	uc := newAuthUC(users, newFakeTokenRepo(), &fakeThrottle{allow: true})

	u, err := uc.Login(context.Background(), "admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !u.IsAdmin() {
		t.Fatalf("role = %s, want admin", u.Role)
	}

	// second login reuses the bootstrapped account
	again, err := uc.Login(context.Background(), "admin", "s3cret")
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("admin recreated: %s vs %s", again.ID, u.ID)
	}
}

func TestLoginChecksPasswordAndExpiry(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "alice", "correct", time.Now().Add(time.Hour))
	seedUser(t, users, "bob", "whatever", time.Now().Add(-time.Hour))
	uc := newAuthUC(users, newFakeTokenRepo(), &fakeThrottle{allow: true})

	if _, err := uc.Login(context.Background(), "alice", "correct"); err != nil {
		t.Fatalf("valid login: %v", err)
	}
	if _, err := uc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := uc.Login(context.Background(), "nobody", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}
	if _, err := uc.Login(context.Background(), "bob", "whatever"); !errors.Is(err, domain.ErrAccountExpired) {
		t.Fatalf("expired account: %v", err)
	}
}

func TestLoginRateLimited(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "alice", "correct", time.Now().Add(time.Hour))
	uc := newAuthUC(users, newFakeTokenRepo(), &fakeThrottle{allow: false})

	if _, err := uc.Login(context.Background(), "alice", "correct"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestRegisterConsumesInviteToken(t *testing.T) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	tok, _ := model.NewInviteToken(48, "admin")
	if err := tokens.Save(context.Background(), nil, tok); err != nil {
		t.Fatal(err)
	}
	uc := newAuthUC(users, tokens, &fakeThrottle{allow: true})

	before := time.Now()
	u, err := uc.Register(context.Background(), "carol", "pw", tok.Code)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	wantMin := before.Add(48 * time.Hour)
	if u.ExpiresAt.Before(wantMin) || u.ExpiresAt.After(wantMin.Add(time.Minute)) {
		t.Fatalf("expiry = %v, want ~%v", u.ExpiresAt, wantMin)
	}

	// the code is single-use
	if _, err := uc.Register(context.Background(), "dave", "pw", tok.Code); !errors.Is(err, domain.ErrTokenUsed) {
		t.Fatalf("reused token: %v", err)
	}
	if _, err := uc.Register(context.Background(), "erin", "pw", "NOPE"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Fatalf("unknown token: %v", err)
	}
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	users := newFakeUserRepo()
	seedUser(t, users, "alice", "pw", time.Now().Add(time.Hour))
	tokens := newFakeTokenRepo()
	tok, _ := model.NewInviteToken(24, "admin")
	_ = tokens.Save(context.Background(), nil, tok)
	uc := newAuthUC(users, tokens, &fakeThrottle{allow: true})

	if _, err := uc.Register(context.Background(), "alice", "pw2", tok.Code); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestRenewExtendsFromCurrentExpiry(t *testing.T) {
	users := newFakeUserRepo()
	future := time.Now().Add(10 * time.Hour).Truncate(time.Second)
	u := seedUser(t, users, "alice", "pw", future)
	tokens := newFakeTokenRepo()
	tok, _ := model.NewInviteToken(24, "admin")
	_ = tokens.Save(context.Background(), nil, tok)
	uc := newAuthUC(users, tokens, &fakeThrottle{allow: true})

	renewed, err := uc.Renew(context.Background(), u.ID, tok.Code)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if want := future.Add(24 * time.Hour); !renewed.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v (extends from future expiry)", renewed.ExpiresAt, want)
	}
}

func TestRenewExpiredAccountExtendsFromNow(t *testing.T) {
	users := newFakeUserRepo()
	u := seedUser(t, users, "alice", "pw", time.Now().Add(-48*time.Hour))
	tokens := newFakeTokenRepo()
	tok, _ := model.NewInviteToken(24, "admin")
	_ = tokens.Save(context.Background(), nil, tok)
	uc := newAuthUC(users, tokens, &fakeThrottle{allow: true})

	before := time.Now()
	renewed, err := uc.Renew(context.Background(), u.ID, tok.Code)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	wantMin := before.Add(24 * time.Hour)
	if renewed.ExpiresAt.Before(wantMin) || renewed.ExpiresAt.After(wantMin.Add(time.Minute)) {
		t.Fatalf("expiry = %v, want ~%v (extends from now)", renewed.ExpiresAt, wantMin)
	}
}
