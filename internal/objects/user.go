package objects

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"nebula/internal/platform/database"
	dErrors "nebula/pkg/domain-errors"
	str "nebula/pkg/string"
)

// User is an object of type user with typed accessors over its metadata.
type User struct {
	Object
}

// NewUser creates an unsaved user.
func NewUser(login string, meta Meta) *User {
	o := New(TypeUser, meta)
	o.Meta["login"] = login
	return &User{Object: *o}
}

// Login returns the user name.
func (u *User) Login() string { return u.Meta.String("login") }

// Admin reports whether the user bypasses scope checks.
func (u *User) Admin() bool { return u.Meta.Bool("is_admin") }

// PasswordHash is the bcrypt hash stored under "password".
func (u *User) PasswordHash() string { return u.Meta.String("password") }

// Scopes lists the access scopes granted to the user.
func (u *User) Scopes() []string {
	var granted []string
	switch v := u.Meta["scopes"].(type) {
	case []string:
		granted = v
	case []any:
		granted = make([]string, 0, len(v))
		for _, s := range v {
			if str, ok := s.(string); ok {
				granted = append(granted, str)
			}
		}
	}
	return str.DedupeAndTrim(granted)
}

// HasScopes reports whether the user holds every given scope.
func (u *User) HasScopes(required ...string) bool {
	granted := u.Scopes()
	for _, s := range required {
		if !slices.Contains(granted, s) {
			return false
		}
	}
	return true
}

// MarshalJSON hides the password hash.
func (u *User) MarshalJSON() ([]byte, error) {
	safe := u.Object
	if _, ok := safe.Meta["password"]; ok {
		safe.Meta = make(Meta, len(u.Meta))
		for k, v := range u.Meta {
			if k != "password" {
				safe.Meta[k] = v
			}
		}
	}
	return safe.MarshalJSON()
}

// LoadUser loads a user by id.
func LoadUser(ctx context.Context, db database.DB, id int64) (*User, error) {
	o, err := Load(ctx, db, TypeUser, id)
	if err != nil {
		return nil, err
	}
	return &User{Object: *o}, nil
}

// FindUserByLogin returns the user with the given login or not_found.
func FindUserByLogin(ctx context.Context, db database.DB, login string) (*User, error) {
	row, err := database.FetchOne(ctx, db, "SELECT id, meta FROM users WHERE meta->>'login' = $1", login)
	if errors.Is(err, database.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("find user %q: %w", login, err)
	}
	return &User{Object: *fromRow(TypeUser, row)}, nil
}
