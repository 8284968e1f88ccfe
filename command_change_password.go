package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type ChangePasswordMessage struct {
	UserID          string `json:"-"`
	CurrentPassword string `json:"currentpassword" doc:"Password currently on record."`
	NewPassword     string `json:"newpassword" doc:"Replacement password."`
	OnResponse      func(resp *ChangePasswordResponse)
}

func (e ChangePasswordMessage) Type() string { return "account.change_password" }

type ChangePasswordResponse struct {
	User    *User
	Success bool
}

// ChangePasswordHandler replaces the stored hash after proving the
// caller knows the current password.
type ChangePasswordHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	logger Logger
}

func NewChangePasswordHandler(repo RepositoryManager, hasher *Hasher) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:   repo,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	resp := &ChangePasswordResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return ErrUnauthorized
	}

	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrUnauthorized
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
	}

	if err := h.hasher.ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
		return WithFieldError(ErrCurrentPasswordWrong, "currentpassword", TextCodeCurrentPasswordWrong)
	}

	hash, err := h.hasher.HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	updated, err := h.repo.Users().SetPassword(ctx, id, hash)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrPasswordChangeFailed
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store new password")
	}

	resp.User = updated
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
