package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the durable directory record. Email doubles as the token subject.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Active        bool       `bun:"is_active,notnull" json:"is_active"`
	LoggedInAt    *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Principal is the outcome of a successful authentication: who the request
// acts as, with the role and activation state resolved from the directory
// at verification time. It is never persisted.
type Principal struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Role   UserRole  `json:"role"`
	Active bool      `json:"is_active"`
}

// Principal converts the record into its transient authenticated form.
func (u *User) Principal() *Principal {
	return &Principal{
		ID:     u.ID,
		Email:  u.Email,
		Role:   u.Role,
		Active: u.Active,
	}
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
