package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateOptionalEmail accepts an empty string or a valid address
func ValidateOptionalEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	return ValidateEmail(email)
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// ValidateRequired checks that a named field is not blank
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateYearOfBirth checks the year is plausible relative to now
func ValidateYearOfBirth(year int, now time.Time) error {
	if year < 1900 || year > now.Year() {
		return ValidationError{Field: "yearOfBirth", Message: fmt.Sprintf("year of birth must be between 1900 and %d", now.Year())}
	}
	return nil
}

// ValidateAmount checks that a monetary amount is positive
func ValidateAmount(field string, amount float64) error {
	if amount <= 0 {
		return ValidationError{Field: field, Message: field + " must be greater than zero"}
	}
	return nil
}

// ValidateISODate checks a YYYY-MM-DD date string
func ValidateISODate(field, value string) error {
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		return ValidationError{Field: field, Message: field + " must be a date in YYYY-MM-DD format"}
	}
	return nil
}

// ValidateMonth checks a 0-based month index
func ValidateMonth(month *int) error {
	if month == nil {
		return nil
	}
	if *month < 0 || *month > 11 {
		return ValidationError{Field: "month", Message: "month must be between 0 and 11"}
	}
	return nil
}

// ValidateTierAges checks the two tier boundaries
func ValidateTierAges(tier1Age, tier2Age int) error {
	if tier1Age <= 0 {
		return ValidationError{Field: "tier1Age", Message: "tier1Age must be positive"}
	}
	if tier2Age <= tier1Age {
		return ValidationError{Field: "tier2Age", Message: "tier2Age must be greater than tier1Age"}
	}
	return nil
}
