package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"github.com/starford/corkboard/internal/apperr"
)

// Themes a user can pick.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Preferences are per-user UI settings.
type Preferences struct {
	Theme string `json:"theme"`
}

// Validate implements validation.Validatable.
func (p Preferences) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Theme, validation.In(ThemeLight, ThemeDark)),
	)
}

// User is an account as the UI sees it.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Avatar      string      `json:"avatar,omitempty"`
	GoogleID    string      `json:"googleId,omitempty"`
	Preferences Preferences `json:"preferences"`
}

// Validate implements validation.Validatable.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.Required, is.EmailFormat),
		validation.Field(&u.Name, validation.Length(0, 200)),
		validation.Field(&u.Preferences),
	)
}

const userColumns = `id, email, name, avatar, google_id, theme`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Avatar, &u.GoogleID, &u.Preferences.Theme)
	return u, err
}

// Login returns the user with u.Email, creating it with the light theme on
// first sign-in. A new user keeps u.ID when set and gets a fresh uuid
// otherwise. Profile fields of an existing user are left as stored.
func (db *DB) Login(ctx context.Context, u User) (User, error) {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if err := u.Validate(); err != nil {
		return User{}, fmt.Errorf("workspace: login: %w: %w", apperr.ErrInvalid, err)
	}

	existing, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, u.Email))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("workspace: find user: %w", err)
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Preferences.Theme = ThemeLight
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Avatar, u.GoogleID, u.Preferences.Theme)
	if err != nil {
		return User{}, fmt.Errorf("workspace: create user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by id.
func (db *DB) GetUser(ctx context.Context, id string) (User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("workspace: user %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("workspace: get user: %w", err)
	}
	return u, nil
}

// UpdateUser changes name, avatar and theme. Empty fields keep their value.
func (db *DB) UpdateUser(ctx context.Context, u User) (User, error) {
	cur, err := db.GetUser(ctx, u.ID)
	if err != nil {
		return User{}, err
	}
	if u.Name != "" {
		cur.Name = u.Name
	}
	if u.Avatar != "" {
		cur.Avatar = u.Avatar
	}
	if u.Preferences.Theme != "" {
		cur.Preferences.Theme = u.Preferences.Theme
	}
	if err := cur.Validate(); err != nil {
		return User{}, fmt.Errorf("workspace: update user: %w: %w", apperr.ErrInvalid, err)
	}
	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, avatar = ?, theme = ? WHERE id = ?`,
		cur.Name, cur.Avatar, cur.Preferences.Theme, cur.ID)
	if err != nil {
		return User{}, fmt.Errorf("workspace: update user: %w", err)
	}
	return cur, nil
}
