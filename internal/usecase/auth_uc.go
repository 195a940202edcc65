// File: internal/usecase/auth_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"webgpt-server/internal/domain"
	"webgpt-server/internal/domain/model"
	"webgpt-server/internal/domain/ports/adapter"
	"webgpt-server/internal/domain/ports/repository"
	"webgpt-server/internal/infra/logging"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

type AuthUseCase interface {
	// Login authenticates by username/password. The configured admin
	// credentials bootstrap the admin account on first use.
	Login(ctx context.Context, username, password string) (*model.User, error)
	// Register consumes an invite code and creates a timed account.
	Register(ctx context.Context, username, password, code string) (*model.User, error)
	// Renew consumes an invite code and extends the account's expiry,
	// counted from the later of now and the current expiry.
	Renew(ctx context.Context, userID, code string) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
}

type AdminBootstrap struct {
	Username string
	Password string
}

type authUC struct {
	users    repository.UserRepository
	tokens   repository.InviteTokenRepository
	tm       repository.TransactionManager
	throttle adapter.LoginThrottle
	admin    AdminBootstrap
	log      *zerolog.Logger
}

func NewAuthUseCase(
	users repository.UserRepository,
	tokens repository.InviteTokenRepository,
	tm repository.TransactionManager,
	throttle adapter.LoginThrottle,
	admin AdminBootstrap,
	logger *zerolog.Logger,
) *authUC {
	return &authUC{users: users, tokens: tokens, tm: tm, throttle: throttle, admin: admin, log: logger}
}

func (a *authUC) Login(ctx context.Context, username, password string) (*model.User, error) {
	log := logging.With(ctx, a.log)
	defer logging.TraceDuration(log, "AuthUC.Login")()

	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if a.throttle != nil {
		ok, err := a.throttle.AllowLogin(ctx, username)
		if err != nil {
			// Throttle backend trouble must not lock everyone out.
			log.Warn().Err(err).Msg("login throttle unavailable")
		} else if !ok {
			return nil, domain.ErrRateLimited
		}
	}

	if a.admin.Username != "" && username == a.admin.Username && password == a.admin.Password {
		return a.bootstrapAdmin(ctx)
	}

	u, err := a.users.FindByUsername(ctx, repository.NoTX, username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsAdmin() && u.Expired(time.Now()) {
		return nil, domain.ErrAccountExpired
	}
	return u, nil
}

// bootstrapAdmin upserts the admin account from config so the panel works on
// a fresh database.
func (a *authUC) bootstrapAdmin(ctx context.Context) (*model.User, error) {
	u, err := a.users.FindByUsername(ctx, repository.NoTX, a.admin.Username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u, err = model.NewUser("", a.admin.Username, string(hash), model.RoleAdminUser, model.AdminExpiry)
	if err != nil {
		return nil, err
	}
	if err := a.users.Save(ctx, repository.NoTX, u); err != nil {
		// Lost a race with a concurrent bootstrap; read the winner.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return a.users.FindByUsername(ctx, repository.NoTX, a.admin.Username)
		}
		return nil, err
	}
	a.log.Info().Str("username", u.Username).Msg("admin account bootstrapped")
	return u, nil
}

func (a *authUC) Register(ctx context.Context, username, password, code string) (*model.User, error) {
	log := logging.With(ctx, a.log)
	defer logging.TraceDuration(log, "AuthUC.Register")()

	if username == "" || password == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}

	var created *model.User
	err := a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		token, err := a.tokens.FindByCode(ctx, tx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrTokenNotFound
		} else if err != nil {
			return err
		}
		if token.IsUsed {
			return domain.ErrTokenUsed
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u, err := model.NewUser("", username, string(hash), model.RoleRegularUser, time.Now().Add(token.Duration()))
		if err != nil {
			return err
		}
		if err := a.users.Save(ctx, tx, u); err != nil {
			return err
		}
		if err := a.tokens.MarkUsed(ctx, tx, code); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("username", created.Username).Msg("account registered")
	return created, nil
}

func (a *authUC) Renew(ctx context.Context, userID, code string) (*model.User, error) {
	log := logging.With(ctx, a.log)
	defer logging.TraceDuration(log, "AuthUC.Renew")()

	if code == "" {
		return nil, domain.ErrInvalidArgument
	}

	var renewed *model.User
	err := a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		token, err := a.tokens.FindByCode(ctx, tx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrTokenNotFound
		} else if err != nil {
			return err
		}
		if token.IsUsed {
			return domain.ErrTokenUsed
		}

		u, err := a.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		u.ExtendAccess(time.Now(), token.Duration())
		if err := a.users.Save(ctx, tx, u); err != nil {
			return err
		}
		if err := a.tokens.MarkUsed(ctx, tx, code); err != nil {
			return err
		}
		renewed = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", renewed.ID).Time("expires_at", renewed.ExpiresAt).Msg("access renewed")
	return renewed, nil
}

func (a *authUC) Get(ctx context.Context, userID string) (*model.User, error) {
	return a.users.FindByID(ctx, repository.NoTX, userID)
}
