package models

import (
	"errors"
	"regexp"
	"strings"
)

const RoleCustomer = "customer"

var verificationCode = regexp.MustCompile(`^[0-9]{4}$`)

var ErrInvalidCode = errors.New("Please enter a 4-digit code")

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// Registration creates a customer account once the code sent to Phone is
// confirmed.
type Registration struct {
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Password string    `json:"password"`
	Location *Location `json:"location,omitempty"`
	Role     string    `json:"role"`
	Code     string    `json:"code"`
}

// Validate reports the first missing or malformed field.
func (r Registration) Validate() error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return errors.New("Name is required")
	case strings.TrimSpace(r.Phone) == "":
		return errors.New("Phone number is required")
	case r.Password == "":
		return errors.New("Password is required")
	case !verificationCode.MatchString(r.Code):
		return ErrInvalidCode
	}
	return nil
}

// Credentials are returned when an account is created.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
