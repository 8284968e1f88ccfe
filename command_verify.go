package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type VerifyAccountMessage struct {
	Token      string `json:"token" doc:"One time verification token from the signup email."`
	OnResponse func(resp *VerifyAccountResponse)
}

func (e VerifyAccountMessage) Type() string { return "account.verify" }

type VerifyAccountResponse struct {
	User     *User
	Token    string
	Verified bool
}

// VerifyAccountHandler consumes the verification token staged at
// signup. An absent, unknown, or expired token is not a failure: the
// request passes onward unverified, so the route below can render its
// normal page. A consumed token flips the account to verified and the
// response carries a fresh session token so the caller does not have
// to log in again.
type VerifyAccountHandler struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
	now    func() time.Time
}

func NewVerifyAccountHandler(repo RepositoryManager, tokens TokenService) *VerifyAccountHandler {
	return &VerifyAccountHandler{
		repo:   repo,
		tokens: tokens,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *VerifyAccountHandler) WithLogger(logger Logger) *VerifyAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyAccountHandler) WithClock(clock func() time.Time) *VerifyAccountHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	resp := &VerifyAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	user, err := h.repo.Users().ConsumeVerificationToken(ctx, event.Token, DateToUTC(h.now()))
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
	}

	token, err := h.tokens.Sign(user.Identity())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	resp.User = user
	resp.Token = token
	resp.Verified = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
