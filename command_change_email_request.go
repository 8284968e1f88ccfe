package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type RequestEmailChangeMessage struct {
	UserID     string `json:"-"`
	Password   string `json:"password" doc:"Password currently on record."`
	NewEmail   string `json:"email" doc:"Address the account should move to."`
	OnResponse func(resp *RequestEmailChangeResponse)
}

func (e RequestEmailChangeMessage) Type() string { return "account.change_email_request" }

type RequestEmailChangeResponse struct {
	User    *User
	Success bool
}

// RequestEmailChangeHandler stages a pending address change. The
// canonical email column stays untouched until the confirmation token
// sent to the new address comes back, so a typo in the new address
// cannot lock the account out.
type RequestEmailChangeHandler struct {
	repo   RepositoryManager
	hasher *Hasher
	issuer *OneTimeTokenIssuer
	mailer Mailer
	cfg    Config
	logger Logger
}

func NewRequestEmailChangeHandler(repo RepositoryManager, hasher *Hasher, issuer *OneTimeTokenIssuer, mailer Mailer, cfg Config) *RequestEmailChangeHandler {
	return &RequestEmailChangeHandler{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		mailer: mailer,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (h *RequestEmailChangeHandler) WithLogger(logger Logger) *RequestEmailChangeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestEmailChangeHandler) Execute(ctx context.Context, event RequestEmailChangeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email change request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestEmailChangeHandler) execute(ctx context.Context, event RequestEmailChangeMessage) error {
	resp := &RequestEmailChangeResponse{}

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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for email change")
	}

	if err := h.hasher.ComparePasswordAndHash(event.Password, user.PasswordHash); err != nil {
		return WithFieldError(ErrCurrentPasswordWrong, "password", TextCodeCurrentPasswordWrong)
	}

	if existing, err := h.repo.Users().GetByEmail(ctx, event.NewEmail); err == nil && existing != nil {
		return WithFieldError(ErrEmailAlreadyUsed, "email", TextCodeEmailAlreadyUsed)
	} else if err != nil && !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check target email")
	}

	token, expires := h.issuer.IssueFor(h.cfg.GetOneTimeTokenWindow())

	staged, err := h.repo.Users().StageEmailChange(ctx, id, event.NewEmail, token, expires)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrUnauthorized
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to stage email change")
	}

	// the confirmation goes to the pending address; without it the
	// change can never complete, so delivery failure is fatal
	if err := h.mailer.SendChangeEmail(ctx, staged); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send email change confirmation")
	}

	resp.User = staged
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
