package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Locals keys set by the guard on authenticated requests.
const (
	LocalsUserKey  = "user"
	LocalsAdminKey = "is_admin"
)

// RedirectMode controls how the guard rejects browser style clients.
type RedirectMode int

const (
	// RedirectNone raises the failure as a structured error.
	RedirectNone RedirectMode = iota
	// RedirectHeader signals the client side router via an HX-Redirect
	// header without changing the response status flow.
	RedirectHeader
	// RedirectStatus issues a plain HTTP redirect to the logout route.
	RedirectStatus
)

const redirectRoute = "/logout"

// RenewalDecision is the explicit side effect a bearer token
// resolution hands back to the guard: either keep the presented token
// untouched or replace it with a freshly minted one.
type RenewalDecision struct {
	Renew bool
	Token string
}

// GuardOption configures a single guard instance.
type GuardOption func(*guardConfig)

type guardConfig struct {
	strict     bool
	mode       RedirectMode
	messageKey string
}

// WithStrict makes the absence of a resolved identity itself a
// failure. Loose guards attach the identity when present and pass
// anonymous requests through.
func WithStrict(strict bool) GuardOption {
	return func(g *guardConfig) { g.strict = strict }
}

// WithRedirectMode selects the rejection style for browser clients.
func WithRedirectMode(mode RedirectMode) GuardOption {
	return func(g *guardConfig) { g.mode = mode }
}

// WithFailureMessage sets the catalog key for the failure text shown
// to the client when this guard rejects.
func WithFailureMessage(key string) GuardOption {
	return func(g *guardConfig) { g.messageKey = key }
}

// Guard authenticates requests through a single named strategy and
// enforces the banned and verified policy before handing control to
// the route handler.
type Guard struct {
	strategies *StrategyRegistry
	tokens     TokenService
	cfg        Config
	logger     Logger
}

func NewGuard(cfg Config, strategies *StrategyRegistry, tokens TokenService) *Guard {
	return &Guard{
		cfg:        cfg,
		strategies: strategies,
		tokens:     tokens,
		logger:     defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Protect builds route middleware bound to one strategy. Exactly one
// strategy runs per request.
func (g *Guard) Protect(strategy string, opts ...GuardOption) router.MiddlewareFunc {
	gc := &guardConfig{strict: true}
	for _, opt := range opts {
		opt(gc)
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if err := g.authenticate(ctx, strategy, gc); err != nil {
				return err
			}
			return hf(ctx)
		}
	}
}

func (g *Guard) authenticate(ctx router.Context, name string, gc *guardConfig) error {
	strategy, err := g.strategies.Get(name)
	if err != nil {
		return err
	}

	creds := g.credentials(ctx, name)
	user, info, resolveErr := strategy.Resolve(ctx.Context(), creds)

	// provider side failures never leak internals, regardless of the
	// strict flag
	if name == StrategyOIDC && resolveErr != nil {
		return g.reject(ctx, gc, ErrOIDCFailed)
	}

	if resolveErr != nil && !isAuthFailure(resolveErr) {
		return resolveErr
	}

	browser := IsBrowserRequest(ctx)
	redirecting := browser && gc.mode != RedirectNone

	if user == nil {
		if !gc.strict {
			return nil
		}
		if redirecting {
			return g.redirect(ctx, gc)
		}
		if resolveErr != nil {
			return g.reject(ctx, gc, resolveErr)
		}
		return g.reject(ctx, gc, ErrUnauthorized)
	}

	if user.IsBanned {
		if redirecting {
			return g.redirect(ctx, gc)
		}
		return g.reject(ctx, gc, ErrBanned)
	}

	if gc.strict && !user.IsVerified {
		if redirecting {
			return g.redirect(ctx, gc)
		}
		return g.reject(ctx, gc, ErrNotVerified)
	}

	g.attach(ctx, user)

	if decision := g.renewalDecision(user, name, browser, gc.mode, info); decision.Renew {
		DeleteTokenCookie(ctx, g.cfg)
		AttachTokenCookie(ctx, g.cfg, decision.Token)
	}

	return nil
}

// renewalDecision reissues bearer tokens for long lived browser
// sessions so they refresh before hard expiry without an explicit
// refresh endpoint. Only bearer token requests from browser clients
// in status redirect mode qualify, and only while the token's issue
// time is within the renewal window measured in whole days.
func (g *Guard) renewalDecision(user *User, strategy string, browser bool, mode RedirectMode, info *TokenInfo) RenewalDecision {
	if strategy != StrategyToken || !browser || mode != RedirectStatus || info == nil {
		return RenewalDecision{}
	}

	if DaysBetween(time.Now(), info.IssuedAt) >= g.cfg.GetRenewalWindowDays() {
		return RenewalDecision{}
	}

	token, err := g.tokens.Sign(user.Identity())
	if err != nil {
		g.logger.Error("failed to reissue session token: %v", err)
		return RenewalDecision{}
	}

	return RenewalDecision{Renew: true, Token: token}
}

func (g *Guard) attach(ctx router.Context, user *User) {
	ctx.Locals(LocalsUserKey, user)
	ctx.Locals(LocalsAdminKey, user.IsAdmin())
	ctx.SetContext(WithContext(ctx.Context(), user))
}

func (g *Guard) reject(ctx router.Context, gc *guardConfig, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "authentication failed").
			WithCode(errors.CodeUnauthorized)
	}
	if gc.messageKey != "" {
		richErr = richErr.Clone().WithMetadata(map[string]any{
			"message_key": gc.messageKey,
		})
	}
	return richErr
}

func (g *Guard) redirect(ctx router.Context, gc *guardConfig) error {
	DeleteTokenCookie(ctx, g.cfg)

	if gc.mode == RedirectHeader {
		ctx.SetHeader("HX-Redirect", redirectRoute)
		return ctx.Status(http.StatusUnauthorized).SendString("NOT_AUTHENTICATED")
	}

	statusCode := http.StatusSeeOther
	if ctx.Method() == http.MethodGet {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(redirectRoute, statusCode)
}

func (g *Guard) credentials(ctx router.Context, strategy string) Credentials {
	creds := Credentials{}

	switch strategy {
	case StrategyToken:
		creds.Token = BearerToken(ctx, g.cfg)
	case StrategyAPIKey:
		creds.APIKey = ctx.GetString("X-API-KEY", "")
	case StrategyOIDC:
		creds.Assertion = bearerFromHeader(ctx)
	case StrategyLocal:
		payload := LoginPayload{}
		if err := ctx.Bind(&payload); err == nil {
			creds.Email = payload.Email
			creds.Password = payload.Password
		}
	}

	return creds
}

// BearerToken extracts the bearer token from the Authorization header
// or, failing that, the token cookie.
func BearerToken(ctx router.Context, cfg Config) string {
	if token := bearerFromHeader(ctx); token != "" {
		return token
	}
	return ctx.Cookies(cfg.GetContextKey())
}

func bearerFromHeader(ctx router.Context) string {
	a := ctx.GetString("Authorization", "")
	scheme := "Bearer"
	if len(a) > len(scheme)+1 && strings.EqualFold(a[:len(scheme)], scheme) {
		return strings.TrimSpace(a[len(scheme):])
	}
	return ""
}

// TokenFromCookie reports whether the presented bearer token arrived
// via the token cookie rather than the Authorization header.
func TokenFromCookie(ctx router.Context, cfg Config) bool {
	return bearerFromHeader(ctx) == "" && ctx.Cookies(cfg.GetContextKey()) != ""
}

// IsBrowserRequest reports whether the client negotiated an HTML
// response rather than a JSON payload.
func IsBrowserRequest(ctx router.Context) bool {
	if ctx.GetString("HX-Request", "") != "" {
		return true
	}
	accept := ctx.GetString("Accept", "")
	return strings.Contains(accept, "text/html")
}

// AttachTokenCookie stores the signed token in the session cookie.
func AttachTokenCookie(ctx router.Context, cfg Config, token string) {
	duration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		duration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}
	ctx.Cookie(&router.Cookie{
		Name:     cfg.GetContextKey(),
		Value:    token,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// DeleteTokenCookie expires the session cookie.
func DeleteTokenCookie(ctx router.Context, cfg Config) {
	ctx.Cookie(&router.Cookie{
		Name:     cfg.GetContextKey(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// RequireAdmin gates a route on the admin capability derived by a
// prior guard in the chain.
func RequireAdmin() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !IsAdminRequest(ctx) {
				return ErrBanned.Clone()
			}
			return hf(ctx)
		}
	}
}

func isAuthFailure(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz, errors.CategoryNotFound:
		return true
	}
	return false
}
