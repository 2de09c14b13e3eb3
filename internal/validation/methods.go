package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Validator collects field errors
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records the first error seen for a field
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Required checks if a value is present
func (v *Validator) Required(field string, value interface{}) {
	if value == nil {
		v.AddError(field, "must not be nil")
		return
	}

	switch val := value.(type) {
	case string:
		v.Check(strings.TrimSpace(val) != "", field, "must not be empty")
	case []string:
		v.Check(len(val) > 0, field, "must contain at least one item")
	case int:
		v.Check(val != 0, field, "must not be zero")
	}
}

// Email validates email format when a value is given
func (v *Validator) Email(field, email string) {
	if email == "" {
		return
	}
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// Phone validates phone number format when a value is given
func (v *Validator) Phone(field, phone string) {
	if phone == "" {
		return
	}
	v.Check(phoneRegex.MatchString(phone), field, "must be a valid phone number")
}

// Currency checks for an upper-case ISO 4217 code
func (v *Validator) Currency(field, code string) {
	v.Check(currencyRegex.MatchString(code), field, "must be a 3-letter ISO currency code")
}

// OneOf checks that value is one of the allowed strings
func (v *Validator) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
}

// Err returns the collected errors as a single error, or nil.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	errs := make([]ValidationError, 0, len(fields))
	for _, f := range fields {
		errs = append(errs, ValidationError{Field: f, Message: v.Errors[f]})
	}
	return Errors(errs)
}

// ValidationError is a single field failure
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a sorted list of field failures
type Errors []ValidationError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}
