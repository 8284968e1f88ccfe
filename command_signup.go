package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Password   string `json:"password" doc:"Plaintext password, hashed before storage."`
	UseHashid  bool
	OnResponse func(resp *SignupResponse)
}

func (e SignupMessage) Type() string { return "account.signup" }

type SignupResponse struct {
	User    *User
	Success bool
}

// SignupHandler creates an unverified account and emails the
// verification link. Mail delivery failure is fatal here: the account
// is not committed if the user can never receive the token. The
// verification token itself is never part of the response.
type SignupHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	issuer *OneTimeTokenIssuer
	mailer Mailer
	cfg    Config
	logger Logger
}

func NewSignupHandler(repo RepositoryManager, hasher *Hasher, issuer *OneTimeTokenIssuer, mailer Mailer, cfg Config) *SignupHandler {
	return &SignupHandler{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		mailer: mailer,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	resp := &SignupResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			Email:        event.Email,
			PasswordHash: hash,
			Role:         RoleUser,
		}

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}
		if user.ID == uuid.Nil {
			user.ID = uuid.New()
		}

		token, expires := h.issuer.IssueFor(h.cfg.GetVerificationWindow())
		user.StageVerification(token, expires)

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		// delivery failure rolls the account back
		if err := h.mailer.SendVerification(ctx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send verification email")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
