package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Partial updates go through raw SQL so zero values (false, NULL) are
// written instead of skipped by the ORM.
var SetUserActiveSQL = `UPDATE "users" AS "usr"
SET
	"is_active" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var SetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

var TrackLoginSQL = `UPDATE "users" AS "usr"
SET
	"loggedin_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
);`

type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	ListAll(ctx context.Context) ([]*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	UpdateRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error)
	UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role UserRole) (*User, error)
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
	UpdateActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*User, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*User, error)
	UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ UserDirectory                = (*users)(nil)
)

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

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where(`?TableAlias."email" = ?`, email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) ListAll(ctx context.Context) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(TrackLoginSQL, loggedInAt, user.ID).Exec(ctx)
	return err
}

func (a *users) UpdateRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error) {
	return a.UpdateRoleTx(ctx, a.db, id, role)
}

func (a *users) UpdateRoleTx(ctx context.Context, tx bun.IDB, id uuid.UUID, role UserRole) (*User, error) {
	record := &User{
		ID:   id,
		Role: role,
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *users) UpdateEmail(ctx context.Context, id uuid.UUID, email string) (*User, error) {
	return a.UpdateEmailTx(ctx, a.db, id, email)
}

func (a *users) UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) (*User, error) {
	record := &User{
		ID:    id,
		Email: email,
	}
	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}

func (a *users) UpdateActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	return a.UpdateActiveTx(ctx, a.db, id, active)
}

func (a *users) UpdateActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, SetUserActiveSQL, active, id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *users) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return a.UpdatePasswordHashTx(ctx, a.db, id, hash)
}

func (a *users) UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id uuid.UUID, hash string) error {
	res, err := a.Repository.RawTx(ctx, tx, SetUserPasswordSQL, hash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}
