package validation

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	loginCharset   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	loginFirstRune = regexp.MustCompile(`^[A-Za-z]`)
	loginLastRune  = regexp.MustCompile(`[A-Za-z0-9]$`)
)

func loginRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 40),
		validation.Match(loginCharset).Error("must contain only letters, digits, '_', '.' or '-'"),
		validation.Match(loginFirstRune).Error("must start with a letter"),
		validation.Match(loginLastRune).Error("must end with a letter or digit"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(8, 100),
	}
}

// RegistrationForm carries the password signup fields.
type RegistrationForm struct {
	Login           string `json:"login"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (f RegistrationForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Login, loginRules()...),
		validation.Field(&f.Password, passwordRules()...),
		validation.Field(&f.PasswordConfirm,
			validation.Required,
			validation.In(f.Password).Error("must match the password"),
		),
	)
}

type LoginForm struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Login, loginRules()...),
		validation.Field(&f.Password, passwordRules()...),
	)
}

// AnonymousForm carries the optional requested login for a throwaway
// account; left empty, the service generates one.
type AnonymousForm struct {
	Login string `json:"login"`
}

func (f AnonymousForm) Validate() error {
	if f.Login == "" {
		return nil
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.Login, loginRules()...),
	)
}

// ChangeLoginForm renames a password account's login.
type ChangeLoginForm struct {
	Login string `json:"login"`
}

func (f ChangeLoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Login, loginRules()...),
	)
}

// ValidateLogin checks a bare login value, used by the availability check.
// Failures come back as field errors keyed by "login" so handlers can map
// them the same way as struct validation.
func ValidateLogin(login string) error {
	if err := validation.Validate(login, loginRules()...); err != nil {
		return validation.Errors{"login": err}
	}
	return nil
}
