package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type RequestPasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (e RequestPasswordResetMessage) Type() string { return "account.password_reset_request" }

type RequestPasswordResetResponse struct {
	Success bool
}

// RequestPasswordResetHandler stages a reset token and mails it. The
// response is identical whether or not the email exists so the
// endpoint cannot be used to enumerate accounts, and a mail delivery
// failure is logged rather than surfaced for the same reason.
type RequestPasswordResetHandler struct {
	repo   RepositoryManager
	issuer *OneTimeTokenIssuer
	mailer Mailer
	cfg    Config
	logger Logger
}

func NewRequestPasswordResetHandler(repo RepositoryManager, issuer *OneTimeTokenIssuer, mailer Mailer, cfg Config) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:   repo,
		issuer: issuer,
		mailer: mailer,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	resp := &RequestPasswordResetResponse{Success: true}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	token, expires := h.issuer.IssueFor(h.cfg.GetOneTimeTokenWindow())

	user, err := h.repo.Users().StageReset(ctx, event.Email, token, expires)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			// unknown email gets the same success shape
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to stage password reset")
	}

	SendMailDetached(h.logger, func() error {
		return h.mailer.SendResetToken(context.WithoutCancel(ctx), user)
	})

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
