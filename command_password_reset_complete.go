package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type CompletePasswordResetMessage struct {
	Token       string `json:"token" doc:"One time reset token from the email link."`
	NewPassword string `json:"newpassword" doc:"Replacement password."`
	OnResponse  func(resp *CompletePasswordResetResponse)
}

func (e CompletePasswordResetMessage) Type() string { return "account.password_reset_complete" }

type CompletePasswordResetResponse struct {
	User    *User
	Success bool
}

// CompletePasswordResetHandler redeems a staged reset token. The
// token check and the password swap are a single conditional update,
// so a token races to exactly one winner and an expired token never
// mutates anything.
type CompletePasswordResetHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	logger Logger
	now    func() time.Time
}

func NewCompletePasswordResetHandler(repo RepositoryManager, hasher *Hasher) *CompletePasswordResetHandler {
	return &CompletePasswordResetHandler{
		repo:   repo,
		hasher: hasher,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *CompletePasswordResetHandler) WithLogger(logger Logger) *CompletePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CompletePasswordResetHandler) WithClock(clock func() time.Time) *CompletePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *CompletePasswordResetHandler) Execute(ctx context.Context, event CompletePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CompletePasswordResetHandler) execute(ctx context.Context, event CompletePasswordResetMessage) error {
	resp := &CompletePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return ErrPasswordSetFailed
	}

	hash, err := h.hasher.HashPassword(event.NewPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash new password")
	}

	user, err := h.repo.Users().ConsumeResetToken(ctx, event.Token, hash, DateToUTC(h.now()))
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrPasswordSetFailed
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume reset token")
	}

	resp.User = user
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
