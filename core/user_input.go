package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// NewUserInput is the admin form for creating an account.
type NewUserInput struct {
	FirstName       string `json:"first_name" binding:"required,notblank"`
	LastName        string `json:"last_name" binding:"required,notblank"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone_number"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=Password"`
	Role            string `json:"role" binding:"omitempty,role"`
}

var registerValidatorsOnce sync.Once

// registerValidators installs the custom tags used by request structs on gin's
// validator engine and reports fields by their JSON names.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, ok := ParseRole(fl.Field().String())
			return ok
		})
	})
}

// Validate checks the binding tags and returns the row to insert. Handlers
// that bound the input with ShouldBindJSON can call NewUser directly.
func (in NewUserInput) Validate() (NewUser, error) {
	registerValidators()
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return NewUser{}, errors.New(validationMessage(err))
	}
	return in.NewUser(), nil
}

// NewUser trims the input and returns the row to insert, without the hash.
// The role defaults to MEMBER and the account starts active.
func (in NewUserInput) NewUser() NewUser {
	nu := NewUser{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Role:      RoleMember,
		IsActive:  true,
	}
	if r, ok := ParseRole(in.Role); ok {
		nu.Role = r
	}
	return nu
}

// validationMessage turns the first failed tag into a message for the form.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid json"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("invalid email address %q", fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return "passwords do not match"
	case "role":
		return fmt.Sprintf("invalid role %q", fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
