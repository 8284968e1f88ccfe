package auth_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	auth "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

func newTestUUID(t *testing.T) uuid.UUID {
	t.Helper()
	return uuid.New()
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockUsers implements auth.Users. Methods without explicit mocks
// panic through the embedded interface, which is what we want in a
// test that forgot an expectation.
type MockUsers struct {
	mock.Mock
	auth.Users
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByAPIKey(ctx context.Context, apikey string) (*auth.User, error) {
	args := m.Called(ctx, apikey)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindAny(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) Upsert(ctx context.Context, record *auth.User, criteria ...repository.UpdateCriteria) (*auth.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (*auth.User, error) {
	args := m.Called(ctx, id, passwordHash)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) SetAPIKey(ctx context.Context, id uuid.UUID, apikey string) (*auth.User, error) {
	args := m.Called(ctx, id, apikey)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) StageReset(ctx context.Context, email, token string, expires time.Time) (*auth.User, error) {
	args := m.Called(ctx, email, token, expires)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*auth.User, error) {
	args := m.Called(ctx, token, passwordHash, now)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*auth.User, error) {
	args := m.Called(ctx, token, now)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) StageEmailChange(ctx context.Context, id uuid.UUID, address, token string, expires time.Time) (*auth.User, error) {
	args := m.Called(ctx, id, address, token, expires)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) ConsumeEmailChangeToken(ctx context.Context, token string, now time.Time) (*auth.User, error) {
	args := m.Called(ctx, token, now)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// MockRepositoryManager implements auth.RepositoryManager.
type MockRepositoryManager struct {
	mock.Mock
	auth.RepositoryManager
}

func (m *MockRepositoryManager) Users() auth.Users {
	args := m.Called()
	return args.Get(0).(auth.Users)
}

// RunInTx executes the transaction body against a zero tx so command
// handlers exercise their real logic, and surfaces the body's error
// the way the real manager does.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

// MockMailer implements auth.Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerification(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockMailer) SendResetToken(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockMailer) SendChangeEmail(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// recordingCache counts invalidations in call order.
type recordingCache struct {
	invalidated []*auth.User
}

func (c *recordingCache) Invalidate(_ context.Context, user *auth.User) {
	c.invalidated = append(c.invalidated, user)
}

type stubFeatureGate struct {
	enabled map[string]bool
	calls   []string
	err     error
}

func (s *stubFeatureGate) Enabled(ctx context.Context, key string, opts ...gate.ResolveOption) (bool, error) {
	s.calls = append(s.calls, key)
	if s.err != nil {
		return false, s.err
	}
	if s.enabled == nil {
		return true, nil
	}
	enabled, ok := s.enabled[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

// fakeContext is a concrete router.Context for guard and controller
// tests. Anything not overridden panics through the embedded
// interface.
type routerContext = router.Context

type fakeContext struct {
	routerContext

	ctx        context.Context
	NextCalled bool

	method     string
	body       []byte
	reqHeaders map[string]string
	params     map[string]string
	queries    map[string]string
	cookies    map[string]string

	locals      map[any]any
	respHeaders map[string]string
	setCookies  []*router.Cookie

	statusCode   int
	jsonBody     any
	rendered     string
	renderBind   any
	redirectTo   string
	redirectCode int
	sent         string
}

func newFakeContext() *fakeContext {
	return &fakeContext{
		ctx:         context.Background(),
		method:      "GET",
		reqHeaders:  map[string]string{},
		params:      map[string]string{},
		queries:     map[string]string{},
		cookies:     map[string]string{},
		locals:      map[any]any{},
		respHeaders: map[string]string{},
	}
}

func (f *fakeContext) Next() error {
	f.NextCalled = true
	return nil
}

func (f *fakeContext) Context() context.Context { return f.ctx }

func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }

func (f *fakeContext) Method() string { return f.method }

func (f *fakeContext) Bind(i any) error {
	if len(f.body) == 0 {
		return nil
	}
	return json.Unmarshal(f.body, i)
}

func (f *fakeContext) GetString(key string, defaultValue string) string {
	if v, ok := f.reqHeaders[key]; ok {
		return v
	}
	return defaultValue
}

func (f *fakeContext) Param(key string, defaultValue ...string) string {
	if v, ok := f.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) Query(key string, defaultValue string) string {
	if v, ok := f.queries[key]; ok {
		return v
	}
	return defaultValue
}

func (f *fakeContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := f.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) Cookie(cookie *router.Cookie) {
	f.setCookies = append(f.setCookies, cookie)
}

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return value[0]
	}
	return f.locals[key]
}

func (f *fakeContext) SetHeader(key, val string) router.Context {
	f.respHeaders[key] = val
	return f
}

func (f *fakeContext) Status(code int) router.Context {
	f.statusCode = code
	return f
}

func (f *fakeContext) JSON(code int, val any) error {
	f.statusCode = code
	f.jsonBody = val
	return nil
}

func (f *fakeContext) Render(name string, bind any, layout ...string) error {
	f.rendered = name
	f.renderBind = bind
	return nil
}

func (f *fakeContext) Redirect(path string, status ...int) error {
	f.redirectTo = path
	if len(status) > 0 {
		f.redirectCode = status[0]
	}
	return nil
}

func (f *fakeContext) SendString(s string) error {
	f.sent = s
	return nil
}

// lastCookie returns the most recent cookie written under name.
func (f *fakeContext) lastCookie(name string) *router.Cookie {
	for i := len(f.setCookies) - 1; i >= 0; i-- {
		if f.setCookies[i].Name == name {
			return f.setCookies[i]
		}
	}
	return nil
}
