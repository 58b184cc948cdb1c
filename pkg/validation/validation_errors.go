package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-friendly labels
var FieldLabels = map[string]string{
	// Signin
	"Mobile": "Mobile Number",
	"Email":  "Email",

	// Personal details
	"FullName":      "Full Name",
	"FatherName":    "Father's Name",
	"PAN":           "PAN",
	"DateOfBirth":   "Date of Birth",
	"Gender":        "Gender",
	"MaritalStatus": "Marital Status",
	"AddressLine1":  "Address Line 1",
	"AddressLine2":  "Address Line 2",
	"City":          "City",
	"Pincode":       "Pincode",
	"AnnualIncome":  "Annual Income",

	// Nominee
	"Nominees":     "Nominees",
	"Name":         "Nominee Name",
	"Relation":     "Relation",
	"SharePercent": "Share (%)",
	"GuardianName": "Guardian Name",

	// Bank
	"AccountHolder": "Account Holder",
	"AccountNumber": "Account Number",
	"IFSC":          "IFSC",
	"AccountType":   "Account Type",

	// Exchange
	"Segments":        "Segments",
	"ExperienceYears": "Trading Experience",

	// Completion
	"DeclarationAccepted": "Declaration",

	// Wizard requests
	"Step":      "Step",
	"Status":    "Status",
	"SessionID": "Session ID",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		// Not a validation error, return generic message
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)

	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at least %s characters", label, param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: select at least %s", label, param)
		}
		return fmt.Sprintf("%s: must be at least %s", label, param)

	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at most %s characters", label, param)
		}
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: at most %s allowed", label, param)
		}
		return fmt.Sprintf("%s: must be at most %s", label, param)

	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", label, strings.Join(strings.Fields(param), ", "))

	case "email":
		return fmt.Sprintf("%s: invalid email format", label)

	case "numeric":
		return fmt.Sprintf("%s: digits only", label)

	case "valid_name":
		return fmt.Sprintf("%s: only letters, spaces and . ' - are allowed", label)

	case "valid_mobile":
		return fmt.Sprintf("%s: must be a 10 digit Indian mobile number", label)

	case "valid_pan":
		return fmt.Sprintf("%s: invalid PAN format (e.g. ABCPE1234F)", label)

	case "valid_ifsc":
		return fmt.Sprintf("%s: invalid IFSC format (e.g. HDFC0001234)", label)

	case "valid_pincode":
		return fmt.Sprintf("%s: must be a 6 digit pincode", label)

	case "adult_dob":
		return fmt.Sprintf("%s: must be a valid date (YYYY-MM-DD) and at least %d years ago", label, MinimumAge)

	case "no_emoji":
		return fmt.Sprintf("%s: must not contain emoji or special symbols", label)

	default:
		return fmt.Sprintf("%s: failed validation (%s)", label, e.Tag())
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
