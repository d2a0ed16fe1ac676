package card

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// Messages shown to the user when a rule fails.
const (
	MsgAccountName = "Account Name must be a required text field."
	MsgPhone       = "Phone must be in the format (999) 999-9999."
	MsgEmail       = "Email must be a required valid email address."
	MsgStartDate   = "Start Date is required and should not be a weekend."
	MsgEmailForm   = "To Address and Subject are required."
)

var (
	phonePattern = regexp.MustCompile(`^\(\d{3}\) \d{3}-\d{4}$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,4}$`)
)

// dateLayouts are tried in order when parsing a start date.
var dateLayouts = []string{time.DateOnly, time.RFC3339}

var accountMessages = map[string]string{
	"AccountName": MsgAccountName,
	"Phone":       MsgPhone,
	"Email":       MsgEmail,
	"StartDate":   MsgStartDate,
}

// ValidationError reports the first rule a form violates.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validator checks card forms. Rules run in struct field order and only
// the first violation is reported.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the card specific rules on a fresh validator.
func NewValidator() *Validator {
	validate := validator.New()
	rules := map[string]validator.Func{
		"cardphone": func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		},
		"cardemail": func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		},
		"weekday": func(fl validator.FieldLevel) bool {
			date, err := ParseStartDate(fl.Field().String())
			return err == nil && !IsWeekend(date)
		},
	}
	for tag, fn := range rules {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("card: register %s rule: %v", tag, err))
		}
	}
	return &Validator{validate: validate}
}

// Account validates the account form.
func (v *Validator) Account(form AccountForm) error {
	return v.first(form, func(field string) string {
		return accountMessages[field]
	})
}

// Email validates the email form. Both fields share one message.
func (v *Validator) Email(form EmailForm) error {
	return v.first(form, func(string) string {
		return MsgEmailForm
	})
}

func (v *Validator) first(form any, message func(field string) string) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("card: validate: %w", err)
	}
	field := fieldErrs[0].StructField()
	return &ValidationError{Field: field, Message: message(field)}
}

var defaultValidator = NewValidator()

// ValidateAccount reports whether form passes and, if not, why.
func ValidateAccount(form AccountForm) (bool, string) {
	return result(defaultValidator.Account(form))
}

// ValidateEmail reports whether form passes and, if not, why.
func ValidateEmail(form EmailForm) (bool, string) {
	return result(defaultValidator.Email(form))
}

func result(err error) (bool, string) {
	if err == nil {
		return true, ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return false, verr.Message
	}
	return false, err.Error()
}

// ParseStartDate reads a start date as a calendar date. Timestamps keep
// the calendar day of their own offset; no server time zone is applied.
func ParseStartDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("card: invalid start date %q", raw)
}

// IsWeekend reports whether date falls on Saturday or Sunday.
func IsWeekend(date time.Time) bool {
	day := date.Weekday()
	return day == time.Saturday || day == time.Sunday
}
