package auth

import (
	"context"
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-featuregate/gate/guard"
	"github.com/goliatone/go-router"
)

func normalizeFeatureGateError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}

	return errors.Wrap(err, errors.CategoryAuthz, "Feature gate check failed").
		WithCode(errors.CodeForbidden)
}

func requireFeatureGate(ctx context.Context, featureGate gate.FeatureGate, key string) error {
	return guard.Require(ctx, featureGate, key,
		guard.WithDisabledError(ErrRequestNotAllowed),
		guard.WithErrorMapper(normalizeFeatureGateError),
	)
}

// FeatureAccess gates a route on a set of capability flags. Every
// listed flag must resolve to enabled; the first disabled flag stops
// the request, with no mutation performed. Browser clients are
// redirected home when redirectOnDeny is set, everyone else gets a
// request_not_allowed failure.
func FeatureAccess(featureGate gate.FeatureGate, features []string, redirectOnDeny bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			for _, feature := range features {
				if err := requireFeatureGate(ctx.Context(), featureGate, feature); err != nil {
					if redirectOnDeny && IsBrowserRequest(ctx) {
						return ctx.Redirect("/", http.StatusFound)
					}
					return err
				}
			}
			return hf(ctx)
		}
	}
}
