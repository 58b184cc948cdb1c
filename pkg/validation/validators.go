package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MinimumAge is the youngest age allowed to open a trading account
const MinimumAge = 18

// Regex patterns
var (
	// Letters, spaces and common name punctuation: . ' -
	nameRegex = regexp.MustCompile(`^[\p{L} .'-]+$`)

	// Indian mobile: optional +91/91/0 prefix, 10 digits starting 6-9
	mobileRegex = regexp.MustCompile(`^(?:\+91|91|0)?[6-9][0-9]{9}$`)

	// PAN: 5 letters, 4 digits, 1 letter; 4th letter is the holder type
	panRegex = regexp.MustCompile(`^[A-Z]{3}[ABCFGHLJPT][A-Z][0-9]{4}[A-Z]$`)

	// IFSC: 4 letter bank code, a zero, 6 alphanumeric branch code
	ifscRegex = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

	// Pincode: 6 digits, never starting with 0
	pincodeRegex = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// New returns a validator with every custom rule registered
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("valid_name", ValidName)
	_ = v.RegisterValidation("valid_mobile", ValidMobile)
	_ = v.RegisterValidation("valid_pan", ValidPAN)
	_ = v.RegisterValidation("valid_ifsc", ValidIFSC)
	_ = v.RegisterValidation("valid_pincode", ValidPincode)
	_ = v.RegisterValidation("adult_dob", AdultDateOfBirth)
	_ = v.RegisterValidation("no_emoji", NoEmoji)
}

// ValidName validates that a string contains only valid name characters
func ValidName(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true // Optional, use required if needed
	}
	return nameRegex.MatchString(val)
}

// ValidMobile validates an Indian mobile number
func ValidMobile(fl validator.FieldLevel) bool {
	val := strings.ReplaceAll(fl.Field().String(), " ", "")
	if val == "" {
		return true
	}
	return mobileRegex.MatchString(val)
}

// ValidPAN validates a Permanent Account Number (upper case only)
func ValidPAN(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return panRegex.MatchString(val)
}

// ValidIFSC validates a bank branch IFSC code
func ValidIFSC(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return ifscRegex.MatchString(val)
}

// ValidPincode validates a postal index number
func ValidPincode(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	return pincodeRegex.MatchString(val)
}

// AdultDateOfBirth validates a YYYY-MM-DD date at least MinimumAge years ago
func AdultDateOfBirth(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return true
	}
	dob, err := time.Parse("2006-01-02", val)
	if err != nil {
		return false
	}
	return IsAdult(dob, time.Now())
}

// IsAdult reports whether someone born on dob is at least MinimumAge on now
func IsAdult(dob, now time.Time) bool {
	if dob.After(now) {
		return false
	}
	return !dob.AddDate(MinimumAge, 0, 0).After(now)
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, r := range val {
		// Supplementary planes are mostly emoji and pictographs
		if r > 0x1F000 {
			return false
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return false
		}
	}
	return true
}
