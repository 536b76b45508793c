package validation

import (
	"errors"
	"testing"
	"time"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "valid name",
			input:   "John Doe",
			wantErr: false,
		},
		{
			name:    "single name",
			input:   "John",
			wantErr: false,
		},
		{
			name:    "empty name",
			input:   "",
			wantErr: true,
		},
		{
			name:    "name too short",
			input:   "J",
			wantErr: true,
		},
		{
			name:    "name with hyphen",
			input:   "Mary-Jane",
			wantErr: false,
		},
		{
			name:    "name with apostrophe",
			input:   "O'Brien",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "password123",
			wantErr:  false,
		},
		{
			name:     "password exactly 8 characters",
			password: "pass1234",
			wantErr:  false,
		},
		{
			name:     "password too short",
			password: "pass123",
			wantErr:  true,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
		{
			name:     "long password",
			password: "thisIsAVeryLongPasswordThatShouldBeValid123",
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOptionalEmail(t *testing.T) {
	if err := ValidateOptionalEmail(""); err != nil {
		t.Errorf("empty email should be accepted, got %v", err)
	}
	if err := ValidateOptionalEmail("   "); err != nil {
		t.Errorf("blank email should be accepted, got %v", err)
	}
	if err := ValidateOptionalEmail("nope"); err == nil {
		t.Error("invalid email should be rejected")
	}
}

func TestValidateYearOfBirth(t *testing.T) {
	now := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		year    int
		wantErr bool
	}{
		{name: "this year", year: 2026, wantErr: false},
		{name: "old member", year: 1931, wantErr: false},
		{name: "future year", year: 2027, wantErr: true},
		{name: "implausible year", year: 1850, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateYearOfBirth(tt.year, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateYearOfBirth(%d) error = %v, wantErr %v", tt.year, err, tt.wantErr)
			}
		})
	}
}

func TestValidateISODate(t *testing.T) {
	if err := ValidateISODate("date", "2026-03-01"); err != nil {
		t.Errorf("valid date rejected: %v", err)
	}
	if err := ValidateISODate("date", "01/03/2026"); err == nil {
		t.Error("non ISO date accepted")
	}
}

func TestValidateMonth(t *testing.T) {
	month := func(m int) *int { return &m }
	tests := []struct {
		name    string
		month   *int
		wantErr bool
	}{
		{name: "absent", month: nil, wantErr: false},
		{name: "january", month: month(0), wantErr: false},
		{name: "december", month: month(11), wantErr: false},
		{name: "negative", month: month(-1), wantErr: true},
		{name: "thirteenth", month: month(12), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMonth(tt.month)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMonth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTierAges(t *testing.T) {
	tests := []struct {
		name         string
		tier1, tier2 int
		wantField    string
	}{
		{name: "valid", tier1: 18, tier2: 25},
		{name: "zero tier1", tier1: 0, tier2: 25, wantField: "tier1Age"},
		{name: "inverted", tier1: 25, tier2: 18, wantField: "tier2Age"},
		{name: "equal", tier1: 18, tier2: 18, wantField: "tier2Age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTierAges(tt.tier1, tt.tier2)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount("amount", 10); err != nil {
		t.Errorf("positive amount rejected: %v", err)
	}
	if err := ValidateAmount("amount", 0); err == nil {
		t.Error("zero amount accepted")
	}
}
