package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type GenerateAPIKeyMessage struct {
	UserID     string `json:"-"`
	OnResponse func(resp *GenerateAPIKeyResponse)
}

func (e GenerateAPIKeyMessage) Type() string { return "account.generate_apikey" }

type GenerateAPIKeyResponse struct {
	APIKey  string
	Success bool
}

// GenerateAPIKeyHandler mints a fresh opaque key for the account,
// replacing whatever key was there. The cache entry for this user is
// invalidated before the new key is persisted so a concurrent lookup
// cannot pin the old key as a stale hit.
type GenerateAPIKeyHandler struct {
	repo   RepositoryManager
	cache  CacheNotifier
	logger Logger
}

func NewGenerateAPIKeyHandler(repo RepositoryManager, cache CacheNotifier) *GenerateAPIKeyHandler {
	return &GenerateAPIKeyHandler{
		repo:   repo,
		cache:  normalizeCacheNotifier(cache),
		logger: defLogger{},
	}
}

func (h *GenerateAPIKeyHandler) WithLogger(logger Logger) *GenerateAPIKeyHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *GenerateAPIKeyHandler) Execute(ctx context.Context, event GenerateAPIKeyMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during api key rotation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *GenerateAPIKeyHandler) execute(ctx context.Context, event GenerateAPIKeyMessage) error {
	resp := &GenerateAPIKeyResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.UserID)
	if err != nil {
		return ErrUnauthorized
	}

	user, err := h.repo.Users().GetByID(ctx, event.UserID)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrAPIKeyFailed
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for api key rotation")
	}

	apikey, err := NewAPIKey()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate api key")
	}

	// drop cached lookups keyed by the old identity before the swap
	h.cache.Invalidate(ctx, user)

	if _, err := h.repo.Users().SetAPIKey(ctx, id, apikey); err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrAPIKeyFailed
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store api key")
	}

	resp.APIKey = apikey
	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
