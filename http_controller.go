package auth

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// AccountControllerRoutes holds the route paths the controller mounts.
type AccountControllerRoutes struct {
	Signup        string
	Admin         string
	Login         string
	Logout        string
	Verify        string
	Password      string
	APIKey        string
	PasswordReset string
	ChangeEmail   string
}

// AccountControllerViews holds the partial names rendered for browser
// style clients.
type AccountControllerViews struct {
	Message  string
	Token    string
	APIKey   string
	Error    string
	Verified string
}

type AccountController struct {
	Debug      bool
	Logger     Logger
	Repo       RepositoryManager
	Cfg        Config
	Tokens     TokenService
	Hasher     *Hasher
	Issuer     *OneTimeTokenIssuer
	Mailer     Mailer
	Cache      CacheNotifier
	Translator Translator
	Gate       gate.FeatureGate
	Routes     *AccountControllerRoutes
	Views      *AccountControllerViews
}

type AccountControllerOption func(*AccountController) *AccountController

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger: defLogger{},
		Routes: &AccountControllerRoutes{
			Signup:        "/signup",
			Admin:         "/admin",
			Login:         "/login",
			Logout:        "/logout",
			Verify:        "/verify",
			Password:      "/password",
			APIKey:        "/apikey",
			PasswordReset: "/password-reset",
			ChangeEmail:   "/change-email",
		},
		Views: &AccountControllerViews{
			Message:  "partials/message",
			Token:    "partials/token",
			APIKey:   "partials/apikey",
			Error:    "partials/error",
			Verified: "partials/verified",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}
	if c.Cfg == nil {
		panic("Missing Config in account controller...")
	}
	if c.Tokens == nil {
		panic("Missing TokenService in account controller...")
	}

	if c.Hasher == nil {
		c.Hasher = NewHasher(c.Cfg)
	}
	if c.Issuer == nil {
		c.Issuer = NewOneTimeTokenIssuer(c.Cfg)
	}
	if c.Translator == nil {
		c.Translator = NewCatalog(DefaultLanguage)
	}
	c.Cache = normalizeCacheNotifier(c.Cache)

	return c
}

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

// RegisterAccountRoutes mounts every account operation behind its
// matching guard. Exactly one strategy protects each route.
func RegisterAccountRoutes[T any](app router.Router[T], guard *Guard, opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	signup := controller.SignupPost
	if controller.Gate != nil {
		signup = FeatureAccess(controller.Gate, []string{gate.FeatureUsersSignup}, false)(signup)
	}

	app.Post(controller.Routes.Signup, signup).
		SetName("account.signup")

	app.Post(controller.Routes.Admin, controller.CreateAdminPost).
		SetName("account.admin")

	app.Post(controller.Routes.Login,
		guard.Protect(StrategyLocal, WithStrict(true))(controller.LoginPost),
	).SetName("account.login")

	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("account.logout")

	app.Get(controller.Routes.Verify,
		guard.Protect(StrategyToken,
			WithStrict(false),
			WithRedirectMode(RedirectStatus),
		)(controller.VerifyGet),
	).SetName("account.verify")

	app.Post(controller.Routes.Password,
		guard.Protect(StrategyToken, WithStrict(true))(controller.ChangePasswordPost),
	).SetName("account.password")

	app.Post(controller.Routes.APIKey,
		guard.Protect(StrategyToken, WithStrict(true))(controller.GenerateAPIKeyPost),
	).SetName("account.apikey")

	app.Post(controller.Routes.PasswordReset, controller.ResetRequestPost).
		SetName("account.pwd-reset.request")

	app.Post(fmt.Sprintf("%s/:token", controller.Routes.PasswordReset), controller.ResetCompletePost).
		SetName("account.pwd-reset.complete")

	app.Post(controller.Routes.ChangeEmail,
		guard.Protect(StrategyToken, WithStrict(true))(controller.ChangeEmailRequestPost),
	).SetName("account.change-email.request")

	app.Get(fmt.Sprintf("%s/:token", controller.Routes.ChangeEmail),
		guard.Protect(StrategyToken,
			WithStrict(false),
			WithRedirectMode(RedirectStatus),
		)(controller.ChangeEmailConfirmGet),
	).SetName("account.change-email.confirm")
}

// LoginPayload is the local strategy credential body.
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) LoginPost(ctx router.Context) error {
	user, ok := RouterUser(ctx)
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	var res *LoginResponse
	login := NewLoginHandler(a.Tokens).WithLogger(a.Logger)

	err := login.Execute(ctx.Context(), LoginMessage{
		User: user,
		OnResponse: func(resp *LoginResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	AttachTokenCookie(ctx, a.Cfg, res.Token)

	return a.respond(ctx, http.StatusOK, a.Views.Token, router.ViewContext{
		"token": res.Token,
	})
}

func (a *AccountController) LogOut(ctx router.Context) error {
	DeleteTokenCookie(ctx, a.Cfg)
	return ctx.Redirect("/", http.StatusTemporaryRedirect)
}

// SignupPayload is the registration body.
type SignupPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) SignupPost(ctx router.Context) error {
	payload := new(SignupPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, payload, err)
	}

	if a.Debug {
		fmt.Println("======= ACCOUNT SIGNUP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	signup := NewSignupHandler(a.Repo, a.Hasher, a.Issuer, a.Mailer, a.Cfg).
		WithLogger(a.Logger)

	err := signup.Execute(ctx.Context(), SignupMessage{
		Email:     payload.Email,
		Password:  payload.Password,
		UseHashid: true,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	// the verification token never appears in the response
	return a.respond(ctx, http.StatusCreated, a.Views.Message, router.ViewContext{
		"message": a.translate(ctx, MsgVerificationSent),
	})
}

// CreateAdminPayload is the bootstrap body.
type CreateAdminPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r CreateAdminPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) CreateAdminPost(ctx router.Context) error {
	payload := new(CreateAdminPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, payload, err)
	}

	var res *CreateAdminResponse
	bootstrap := NewCreateAdminHandler(a.Repo, a.Hasher, a.Tokens).
		WithLogger(a.Logger)

	err := bootstrap.Execute(ctx.Context(), CreateAdminMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(resp *CreateAdminResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	AttachTokenCookie(ctx, a.Cfg, res.Token)

	return a.respond(ctx, http.StatusCreated, a.Views.Token, router.ViewContext{
		"token":   res.Token,
		"message": a.translate(ctx, MsgWelcome),
	})
}

func (a *AccountController) VerifyGet(ctx router.Context) error {
	var res *VerifyAccountResponse
	verify := NewVerifyAccountHandler(a.Repo, a.Tokens).WithLogger(a.Logger)

	err := verify.Execute(ctx.Context(), VerifyAccountMessage{
		Token: ctx.Query("token", ""),
		OnResponse: func(resp *VerifyAccountResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	if !res.Verified {
		// absent or expired token falls through to the normal page
		return ctx.Next()
	}

	AttachTokenCookie(ctx, a.Cfg, res.Token)

	return a.respond(ctx, http.StatusOK, a.Views.Verified, router.ViewContext{
		"token":   res.Token,
		"message": a.translate(ctx, MsgWelcome),
	})
}

// ChangePasswordPayload carries the current and replacement password.
type ChangePasswordPayload struct {
	CurrentPassword string `form:"currentpassword" json:"currentpassword"`
	NewPassword     string `form:"newpassword" json:"newpassword"`
}

func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) ChangePasswordPost(ctx router.Context) error {
	user, ok := RouterUser(ctx)
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(ChangePasswordPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, payload, err)
	}

	change := NewChangePasswordHandler(a.Repo, a.Hasher).WithLogger(a.Logger)

	err := change.Execute(ctx.Context(), ChangePasswordMessage{
		UserID:          user.ID.String(),
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	return a.respond(ctx, http.StatusOK, a.Views.Message, router.ViewContext{
		"message": a.translate(ctx, MsgPasswordChanged),
	})
}

func (a *AccountController) GenerateAPIKeyPost(ctx router.Context) error {
	user, ok := RouterUser(ctx)
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	var res *GenerateAPIKeyResponse
	rotate := NewGenerateAPIKeyHandler(a.Repo, a.Cache).WithLogger(a.Logger)

	err := rotate.Execute(ctx.Context(), GenerateAPIKeyMessage{
		UserID: user.ID.String(),
		OnResponse: func(resp *GenerateAPIKeyResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	return a.respond(ctx, http.StatusCreated, a.Views.APIKey, router.ViewContext{
		"apikey": res.APIKey,
	})
}

// ResetRequestPayload starts the reset flow.
type ResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

func (r ResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountController) ResetRequestPost(ctx router.Context) error {
	payload := new(ResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, payload, err)
	}

	request := NewRequestPasswordResetHandler(a.Repo, a.Issuer, a.Mailer, a.Cfg).
		WithLogger(a.Logger)

	err := request.Execute(ctx.Context(), RequestPasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	// same shape whether or not the email exists
	return a.respond(ctx, http.StatusOK, a.Views.Message, router.ViewContext{
		"message": a.translate(ctx, MsgResetSent),
	})
}

// ResetCompletePayload finishes the reset flow.
type ResetCompletePayload struct {
	NewPassword string `form:"newpassword" json:"newpassword"`
}

func (r ResetCompletePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AccountController) ResetCompletePost(ctx router.Context) error {
	payload := new(ResetCompletePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, payload, err)
	}

	complete := NewCompletePasswordResetHandler(a.Repo, a.Hasher).
		WithLogger(a.Logger)

	err := complete.Execute(ctx.Context(), CompletePasswordResetMessage{
		Token:       ctx.Param("token", ""),
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	return a.respond(ctx, http.StatusOK, a.Views.Message, router.ViewContext{
		"message": a.translate(ctx, MsgPasswordChanged),
	})
}

// ChangeEmailRequestPayload stages an address change.
type ChangeEmailRequestPayload struct {
	Password string `form:"password" json:"password"`
	Email    string `form:"email" json:"email"`
}

func (r ChangeEmailRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountController) ChangeEmailRequestPost(ctx router.Context) error {
	user, ok := RouterUser(ctx)
	if !ok {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload := new(ChangeEmailRequestPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return a.renderValidation(ctx, payload, err)
	}

	request := NewRequestEmailChangeHandler(a.Repo, a.Hasher, a.Issuer, a.Mailer, a.Cfg).
		WithLogger(a.Logger)

	err := request.Execute(ctx.Context(), RequestEmailChangeMessage{
		UserID:   user.ID.String(),
		Password: payload.Password,
		NewEmail: payload.Email,
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	return a.respond(ctx, http.StatusOK, a.Views.Message, router.ViewContext{
		"message": a.translate(ctx, MsgChangeEmailSent),
	})
}

func (a *AccountController) ChangeEmailConfirmGet(ctx router.Context) error {
	var res *ConfirmEmailChangeResponse
	confirm := NewConfirmEmailChangeHandler(a.Repo, a.Tokens, a.Cache).
		WithLogger(a.Logger)

	err := confirm.Execute(ctx.Context(), ConfirmEmailChangeMessage{
		Token: ctx.Param("token", ""),
		OnResponse: func(resp *ConfirmEmailChangeResponse) {
			res = resp
		},
	})
	if err != nil {
		return a.renderError(ctx, err)
	}

	if !res.Confirmed {
		return ctx.Next()
	}

	AttachTokenCookie(ctx, a.Cfg, res.Token)

	return a.respond(ctx, http.StatusOK, a.Views.Verified, router.ViewContext{
		"token":   res.Token,
		"message": a.translate(ctx, MsgWelcome),
	})
}

func (a *AccountController) respond(ctx router.Context, status int, view string, bind router.ViewContext) error {
	if IsBrowserRequest(ctx) {
		return ctx.Status(status).Render(view, bind)
	}
	return ctx.JSON(status, bind)
}

func (a *AccountController) renderError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Error(
		"account operation error",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
	)

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(richErr))
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	bind := router.ViewContext{
		"error": a.translateError(ctx, richErr),
	}
	if fields := FieldErrors(richErr); len(fields) > 0 {
		translated := make(map[string]string, len(fields))
		for field, kind := range fields {
			translated[field] = a.translate(ctx, messageKeyFor(kind))
		}
		bind["errors"] = translated
	}

	if IsBrowserRequest(ctx) {
		return ctx.Status(status).Render(a.Views.Error, bind)
	}
	return ctx.JSON(status, bind)
}

func (a *AccountController) renderBindError(ctx router.Context, err error) error {
	a.Logger.Error("failed to parse request payload", "error", err)
	return a.renderError(ctx, errors.Wrap(err, errors.CategoryBadInput, "failed to parse request body").
		WithCode(errors.CodeBadRequest))
}

func (a *AccountController) renderValidation(ctx router.Context, payload any, err error) error {
	fields := FormatValidationErrorToMap(err)
	a.Logger.Error("payload validation failed", "error", err)

	if a.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	bind := router.ViewContext{
		"error":  err.Error(),
		"errors": fields,
	}
	if IsBrowserRequest(ctx) {
		return ctx.Status(http.StatusBadRequest).Render(a.Views.Error, bind)
	}
	return ctx.JSON(http.StatusBadRequest, bind)
}

func (a *AccountController) translate(ctx router.Context, key string) string {
	return a.Translator.T(requestLanguage(ctx), key)
}

func (a *AccountController) translateError(ctx router.Context, err *errors.Error) string {
	if err.TextCode == "" {
		return err.Message
	}
	msg := a.Translator.T(requestLanguage(ctx), messageKeyFor(err.TextCode))
	if msg == messageKeyFor(err.TextCode) {
		return err.Message
	}
	return msg
}

func messageKeyFor(textCode string) string {
	return "errors." + strings.ToLower(textCode)
}

func requestLanguage(ctx router.Context) string {
	lang := ctx.GetString("Accept-Language", "")
	if lang == "" {
		return DefaultLanguage
	}
	if idx := strings.IndexAny(lang, ",;"); idx > 0 {
		lang = lang[:idx]
	}
	return strings.TrimSpace(lang)
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for form redisplay.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

// ValidateStringEquals checks that both values match.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return stderrors.New("values must match")
		}
		return nil
	}
}
