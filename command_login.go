package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

type LoginMessage struct {
	User       *User
	OnResponse func(resp *LoginResponse)
}

func (e LoginMessage) Type() string { return "account.login" }

type LoginResponse struct {
	Token   string
	Success bool
}

// LoginHandler issues a session token for an identity already
// resolved by a local strategy guard. It performs no credential
// checks of its own.
type LoginHandler struct {
	tokens TokenService
	logger Logger
}

func NewLoginHandler(tokens TokenService) *LoginHandler {
	return &LoginHandler{
		tokens: tokens,
		logger: defLogger{},
	}
}

func (h *LoginHandler) WithLogger(logger Logger) *LoginHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *LoginHandler) Execute(ctx context.Context, event LoginMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginHandler) execute(ctx context.Context, event LoginMessage) error {
	if event.User == nil {
		return ErrUnauthorized
	}

	token, err := h.tokens.Sign(event.User.Identity())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	if event.OnResponse != nil {
		event.OnResponse(&LoginResponse{Token: token, Success: true})
	}

	return nil
}
