// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxNameLen  = 64
	MaxEmailLen = 254
)

var (
	ErrNameEmpty    = errors.New("name empty")
	ErrNameTooLong  = errors.New("name too long")
	ErrEmailEmpty   = errors.New("email empty")
	ErrEmailTooLong = errors.New("email too long")
	ErrEmailInvalid = errors.New("email invalid")
)

type UserID string

// User is the identity shown to collaborators. Email stays server-side;
// the password never lives on this struct at all.
type User struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Email string `json:"-"`
}

// cursorColors is the palette a user gets a color from at signup
// unless the client picked one.
var cursorColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewUser(name, email, color string) (*User, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	id := UserID(uuid.NewString())
	if color == "" {
		color = cursorColors[int(id[0])%len(cursorColors)]
	}
	return &User{ID: id, Name: name, Color: color, Email: email}, nil
}

func (u *User) SetName(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	u.Name = name
	return nil
}

func validateName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) == 0 {
		return ErrEmailEmpty
	}
	if len(email) > MaxEmailLen {
		return ErrEmailTooLong
	}
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return ErrEmailInvalid
	}
	return nil
}
