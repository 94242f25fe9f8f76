package auth

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	mobileRe  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	pincodeRe = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	gstinRe   = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the request rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("mobile_in", func(fl validator.FieldLevel) bool {
			return IsValidMobile(fl.Field().String())
		})
		_ = v.RegisterValidation("pincode_in", func(fl validator.FieldLevel) bool {
			return pincodeRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
			return gstinRe.MatchString(strings.ToUpper(fl.Field().String()))
		})
		_ = v.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
			return IsStrongPassword(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// IsValidMobile accepts a 10-digit Indian mobile number, ignoring
// non-digit characters.
func IsValidMobile(phone string) bool {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	return mobileRe.MatchString(digits)
}

// IsStrongPassword requires at least 8 characters with a letter and a digit.
func IsStrongPassword(pw string) bool {
	if len(pw) < 8 {
		return false
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// FieldErrors maps field names to messages, in the shape of the API's
// error envelope.
type FieldErrors map[string][]string

// ValidationError is returned when a request fails local validation.
type ValidationError struct {
	Fields FieldErrors
}

// ErrInvalidRequest matches any *ValidationError.
var ErrInvalidRequest = errors.New("invalid request")

// Error joins the field messages.
func (e *ValidationError) Error() string {
	var parts []string
	for field, msgs := range e.Fields {
		for _, m := range msgs {
			parts = append(parts, fmt.Sprintf("%s: %s", field, m))
		}
	}
	sort.Strings(parts)
	return "invalid request: " + strings.Join(parts, "; ")
}

// Is supports errors.Is(err, ErrInvalidRequest).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// First returns the first message in field order, for single-line display.
func (e *ValidationError) First() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(e.Fields[k]) > 0 {
			return e.Fields[k][0]
		}
	}
	return "Invalid request"
}

// Validate checks req against its struct tags.
func Validate(req any) error {
	err := Validator().Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}
	return &ValidationError{Fields: fields}
}

// message renders one field error the way the app's forms phrase them.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Please enter a valid email address"
	case "mobile_in":
		return "Please enter a valid 10-digit phone number"
	case "strong_password":
		return "Password must be at least 8 characters with letters and numbers"
	case "gstin":
		return "Please enter a valid GST number"
	case "pincode_in":
		return "Please enter a valid 6-digit pincode"
	case "len":
		return fmt.Sprintf("Must be %s digits", fe.Param())
	case "numeric":
		return "Must contain only digits"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("Failed validation: %s", fe.Tag())
	}
}
