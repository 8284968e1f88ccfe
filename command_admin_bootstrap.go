package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CreateAdminMessage struct {
	Email      string `json:"email" example:"admin@example.com" doc:"Administrator email."`
	Password   string `json:"password" doc:"Plaintext password, hashed before storage."`
	OnResponse func(resp *CreateAdminResponse)
}

func (e CreateAdminMessage) Type() string { return "account.create_admin" }

type CreateAdminResponse struct {
	User    *User
	Token   string
	Success bool
}

// CreateAdminHandler bootstraps the first account. It only runs while
// the store is empty; once any user exists the path is closed for
// good. The admin comes up verified and gets a signed token right
// away, no verification round trip.
type CreateAdminHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	tokens TokenService
	logger Logger
}

func NewCreateAdminHandler(repo RepositoryManager, hasher *Hasher, tokens TokenService) *CreateAdminHandler {
	return &CreateAdminHandler{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (h *CreateAdminHandler) WithLogger(logger Logger) *CreateAdminHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateAdminHandler) Execute(ctx context.Context, event CreateAdminMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during admin bootstrap",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateAdminHandler) execute(ctx context.Context, event CreateAdminMessage) error {
	resp := &CreateAdminResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := h.repo.Users().FindAny(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to probe for existing users")
		}
		if exists {
			return ErrAdminExists
		}

		hash, err := h.hasher.HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user := &User{
			ID:           uuid.New(),
			Email:        event.Email,
			PasswordHash: hash,
			Role:         RoleAdmin,
			IsVerified:   true,
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create admin user")
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "admin bootstrap transaction failed")
	}

	token, err := h.tokens.Sign(resp.User.Identity())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign bootstrap token")
	}

	resp.Token = token
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
