package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterForm mirrors the registration page fields.
type RegisterForm struct {
	Username string `form:"username" validate:"required,min=4,max=25,alphanum"`
	Password string `form:"password" validate:"required,min=6,max=72"`
	Confirm  string `form:"confirm"  validate:"required,eqfield=Password"`
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type TwoFactorForm struct {
	OTP string `form:"otp" validate:"required,len=6,numeric"`
}

type ForgotPasswordForm struct {
	Username string `form:"username" validate:"required"`
}

type ResetPasswordForm struct {
	Password string `form:"password" validate:"required,min=6,max=72"`
	Confirm  string `form:"confirm"  validate:"required,eqfield=Password"`
}

// parseRegisterForm and friends bind the posted values and validate them,
// returning field-keyed messages for re-rendering.
func parseRegisterForm(r *http.Request) (RegisterForm, map[string]string) {
	f := RegisterForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}
	return f, validateForm(f)
}

func parseLoginForm(r *http.Request) (LoginForm, map[string]string) {
	f := LoginForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	return f, validateForm(f)
}

func parseTwoFactorForm(r *http.Request) (TwoFactorForm, map[string]string) {
	f := TwoFactorForm{OTP: strings.TrimSpace(r.FormValue("otp"))}
	return f, validateForm(f)
}

func parseForgotPasswordForm(r *http.Request) (ForgotPasswordForm, map[string]string) {
	f := ForgotPasswordForm{Username: strings.TrimSpace(r.FormValue("username"))}
	return f, validateForm(f)
}

func parseResetPasswordForm(r *http.Request) (ResetPasswordForm, map[string]string) {
	f := ResetPasswordForm{
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}
	return f, validateForm(f)
}

// validateForm runs the struct validators and maps failures onto the lower
// cased field names the templates key on.
func validateForm(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"form": "Invalid submission. Please try again."}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "alphanum":
		return "Only letters and digits are allowed."
	case "eqfield":
		return "Passwords must match."
	case "len":
		return fmt.Sprintf("Must be exactly %s characters.", fe.Param())
	case "numeric":
		return "Must contain digits only."
	default:
		return "Invalid value."
	}
}

// formValues echoes back non-secret submitted fields for re-rendering.
func formValues(r *http.Request) map[string]string {
	return map[string]string{
		"username": strings.TrimSpace(r.FormValue("username")),
	}
}
