/*
validate.go - Field-format validation shared by intake records

PURPOSE:
  The only structural rules the wider system enforces on beneficiaries,
  users, and donors are required-field presence and two field formats: a
  10-digit Indian mobile number and a basic e-mail shape. Those checks live
  here so every intake path applies the same rules.
*/
package grants

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Ten digits, first digit 6-9.
	mobilePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

	// Deliberately loose: local@domain.tld. Deliverability is the mail
	// server's problem.
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidMobile reports whether s is a valid 10-digit mobile number.
func ValidMobile(s string) bool { return mobilePattern.MatchString(s) }

// ValidEmail reports whether s has a plausible e-mail shape.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// FieldError identifies which field failed and why. It maps to an inline
// form error at the API boundary.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateContact checks the mobile/email formats. Empty email is allowed;
// empty mobile is not.
func ValidateContact(mobile, email string) error {
	if !ValidMobile(strings.TrimSpace(mobile)) {
		return &FieldError{Field: "mobile", Message: "must be 10 digits starting with 6-9"}
	}
	if email != "" && !ValidEmail(strings.TrimSpace(email)) {
		return &FieldError{Field: "email", Message: "must be a valid e-mail address"}
	}
	return nil
}

// RequireFields returns a FieldError for the first blank value in fields,
// which maps field name to value.
func RequireFields(fields map[string]string, order ...string) error {
	for _, name := range order {
		if strings.TrimSpace(fields[name]) == "" {
			return &FieldError{Field: name, Message: "is required"}
		}
	}
	return nil
}
