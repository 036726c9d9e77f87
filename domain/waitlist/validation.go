package waitlist

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameLength  = 100
	MaxPhoneLength = 20

	MsgInvalidEmail = "Please provide a valid email address"
	MsgNameRequired = "Name is required"
	MsgNameLength   = "Name must be between 1 and 100 characters"
	MsgPhoneTooLong = "Phone number cannot exceed 20 characters"
	MsgPhoneInvalid = "Please provide a valid phone number"
)

var phonePattern = regexp.MustCompile(`^[0-9\s\-+()]+$`)

// Registration is a payload that passed validation. Email is normalized and
// Phone is nil when the caller sent none.
type Registration struct {
	Email string
	Name  string
	Phone *string
}

type rule struct {
	value   any
	tag     string
	message string
}

// Validator normalizes registration payloads and reports every rule they break.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// NormalizeEmail trims and lower-cases an address. It is the uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}

// Validate returns the normalized registration, or the failure messages in
// field order.
func (v *Validator) Validate(req *RegisterRequest) (*Registration, []string) {
	if req == nil {
		return nil, []string{MsgInvalidEmail, MsgNameRequired}
	}

	reg := &Registration{
		Email: NormalizeEmail(req.Email),
		Name:  normalizeName(req.Name),
	}

	rules := []rule{
		{value: reg.Email, tag: "required,email", message: MsgInvalidEmail},
		{value: reg.Name, tag: "required", message: MsgNameRequired},
		{value: reg.Name, tag: "max=100", message: MsgNameLength},
	}

	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		reg.Phone = &phone
		rules = append(rules,
			rule{value: phone, tag: "max=20", message: MsgPhoneTooLong},
			rule{value: phone, tag: "phone", message: MsgPhoneInvalid},
		)
	}

	var failures []string
	for _, r := range rules {
		if err := v.validate.Var(r.value, r.tag); err != nil {
			failures = append(failures, r.message)
		}
	}

	if len(failures) > 0 {
		return nil, failures
	}
	return reg, nil
}

// JoinFailures renders validation failures as the single client-facing message.
func JoinFailures(failures []string) string {
	return strings.Join(failures, ", ")
}
