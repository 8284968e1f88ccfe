package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Conditional updates are issued as single statements so a one time
// token is consumed and cleared atomically: no match means no mutation,
// and two racing redeemers cannot both see the token. This is the
// store's match-then-set consistency mechanism.
var (
	setPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

	setAPIKeySQL = `UPDATE "users" AS "usr"
SET
	"apikey" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

	stageResetSQL = `UPDATE "users" AS "usr"
SET
	"reset_password_token" = ?,
	"reset_password_expires" = ?,
	"updated_at" = ?
WHERE
	"usr"."email" = ?
RETURNING *;`

	consumeResetSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_password_token" = NULL,
	"reset_password_expires" = NULL,
	"updated_at" = ?
WHERE
	"usr"."reset_password_token" = ?
AND "usr"."reset_password_expires" > ?
RETURNING *;`

	consumeVerificationSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE,
	"verification_token" = NULL,
	"verification_expires" = NULL,
	"updated_at" = ?
WHERE
	"usr"."verification_token" = ?
AND "usr"."verification_expires" > ?
RETURNING *;`

	stageEmailChangeSQL = `UPDATE "users" AS "usr"
SET
	"change_email_address" = ?,
	"change_email_token" = ?,
	"change_email_expires" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

	consumeEmailChangeSQL = `UPDATE "users" AS "usr"
SET
	"email" = "usr"."change_email_address",
	"change_email_address" = NULL,
	"change_email_token" = NULL,
	"change_email_expires" = NULL,
	"updated_at" = ?
WHERE
	"usr"."change_email_token" = ?
AND "usr"."change_email_expires" > ?
RETURNING *;`
)

// Users is the credential store. Lookups are keyed by id, email, api
// key, or one time token; every mutation is conditional and returns the
// updated record or a record-not-found error when nothing matched.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByAPIKey(ctx context.Context, apikey string) (*User, error)
	FindAny(ctx context.Context) (bool, error)

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (*User, error)
	SetAPIKey(ctx context.Context, id uuid.UUID, apikey string) (*User, error)

	StageReset(ctx context.Context, email, token string, expires time.Time) (*User, error)
	ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*User, error)
	ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*User, error)
	StageEmailChange(ctx context.Context, id uuid.UUID, address, token string, expires time.Time) (*User, error)
	ConsumeEmailChangeToken(ctx context.Context, token string, now time.Time) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository creates the bun backed credential store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.getByColumn(ctx, "email", email)
}

func (a *users) GetByAPIKey(ctx context.Context, apikey string) (*User, error) {
	return a.getByColumn(ctx, "apikey", apikey)
}

func (a *users) getByColumn(ctx context.Context, column, value string) (*User, error) {
	if value == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"column": column})
	}

	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"column": column})
		}
		return nil, err
	}

	return record, nil
}

// FindAny is the existence probe used by admin bootstrap.
func (a *users) FindAny(ctx context.Context) (bool, error) {
	return a.db.NewSelect().Model((*User)(nil)).Exists(ctx)
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) (*User, error) {
	return a.rawOne(ctx, setPasswordSQL, passwordHash, time.Now().UTC(), id.String())
}

func (a *users) SetAPIKey(ctx context.Context, id uuid.UUID, apikey string) (*User, error) {
	return a.rawOne(ctx, setAPIKeySQL, apikey, time.Now().UTC(), id.String())
}

func (a *users) StageReset(ctx context.Context, email, token string, expires time.Time) (*User, error) {
	return a.rawOne(ctx, stageResetSQL, token, DateToUTC(expires), time.Now().UTC(), email)
}

func (a *users) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*User, error) {
	return a.rawOne(ctx, consumeResetSQL, passwordHash, time.Now().UTC(), token, DateToUTC(now))
}

func (a *users) ConsumeVerificationToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.rawOne(ctx, consumeVerificationSQL, time.Now().UTC(), token, DateToUTC(now))
}

func (a *users) StageEmailChange(ctx context.Context, id uuid.UUID, address, token string, expires time.Time) (*User, error) {
	return a.rawOne(ctx, stageEmailChangeSQL, address, token, DateToUTC(expires), time.Now().UTC(), id.String())
}

func (a *users) ConsumeEmailChangeToken(ctx context.Context, token string, now time.Time) (*User, error) {
	return a.rawOne(ctx, consumeEmailChangeSQL, time.Now().UTC(), token, DateToUTC(now))
}

func (a *users) rawOne(ctx context.Context, sql string, args ...any) (*User, error) {
	res, err := a.Repository.RawTx(ctx, a.db, sql, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound()
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
