// Package account manages the single administrator account of the content admin.
package account

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/syllabus/core"
)

var ErrAuthenticationFailed = errors.New("Invalid credentials")

// NewPassword contains information needed to hash a new admin password.
type NewPassword struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// Validate applies the password policy; InitValidators must have been called on validate.
func (np *NewPassword) Validate(validate *validator.Validate) error {
	np.Username = core.CleanString(np.Username)
	return validate.Struct(np)
}

// HashPassword returns the bcrypt hash to store as admin.passwordHash.
func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}

// Authenticate checks the credentials against the configured admin.
// An admin without a password hash cannot log in.
func Authenticate(admin core.AdminConfig, username, password string) error {
	if admin.PasswordHash == "" || core.CleanString(username) != admin.Username {
		return ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return ErrAuthenticationFailed
	}
	return nil
}
