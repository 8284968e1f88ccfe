package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type ConfirmEmailChangeMessage struct {
	Token      string `json:"token" doc:"One time token mailed to the pending address."`
	OnResponse func(resp *ConfirmEmailChangeResponse)
}

func (e ConfirmEmailChangeMessage) Type() string { return "account.change_email_confirm" }

type ConfirmEmailChangeResponse struct {
	User      *User
	Token     string
	Confirmed bool
}

// ConfirmEmailChangeHandler promotes the staged address into the
// canonical email column. Like verification, an absent or expired
// token passes control onward instead of failing, and a successful
// confirmation hands back a fresh session token minted against the
// new address.
type ConfirmEmailChangeHandler struct {
	repo   RepositoryManager
	tokens TokenService
	cache  CacheNotifier
	logger Logger
	now    func() time.Time
}

func NewConfirmEmailChangeHandler(repo RepositoryManager, tokens TokenService, cache CacheNotifier) *ConfirmEmailChangeHandler {
	return &ConfirmEmailChangeHandler{
		repo:   repo,
		tokens: tokens,
		cache:  normalizeCacheNotifier(cache),
		logger: defLogger{},
		now:    time.Now,
	}
}

func (h *ConfirmEmailChangeHandler) WithLogger(logger Logger) *ConfirmEmailChangeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ConfirmEmailChangeHandler) WithClock(clock func() time.Time) *ConfirmEmailChangeHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *ConfirmEmailChangeHandler) Execute(ctx context.Context, event ConfirmEmailChangeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email change confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailChangeHandler) execute(ctx context.Context, event ConfirmEmailChangeMessage) error {
	resp := &ConfirmEmailChangeResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	user, err := h.repo.Users().ConsumeEmailChangeToken(ctx, event.Token, DateToUTC(h.now()))
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume email change token")
	}

	// lookups keyed by the old email are stale now
	h.cache.Invalidate(ctx, user)

	token, err := h.tokens.Sign(user.Identity())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	resp.User = user
	resp.Token = token
	resp.Confirmed = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
