package domain

import "strings"

// ============================================================================
// Step Form Payloads
// ============================================================================

// SigninForm (Step 1)
type SigninForm struct {
	Mobile string `json:"mobile" validate:"required,valid_mobile"`
	Email  string `json:"email" validate:"required,email,max=254"`
}

// PersonalDetailsForm (Step 2)
type PersonalDetailsForm struct {
	FullName      string `json:"full_name" validate:"required,min=2,max=100,valid_name"`
	FatherName    string `json:"father_name" validate:"required,min=2,max=100,valid_name"`
	PAN           string `json:"pan" validate:"required,valid_pan"`
	DateOfBirth   string `json:"date_of_birth" validate:"required,adult_dob"` // Format: YYYY-MM-DD
	Gender        string `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	MaritalStatus string `json:"marital_status" validate:"required,oneof=SINGLE MARRIED"`
	AddressLine1  string `json:"address_line1" validate:"required,max=120,no_emoji"`
	AddressLine2  string `json:"address_line2,omitempty" validate:"max=120,no_emoji"`
	City          string `json:"city" validate:"required,max=60,valid_name"`
	Pincode       string `json:"pincode" validate:"required,valid_pincode"`
	AnnualIncome  string `json:"annual_income" validate:"required,oneof=BELOW_1L 1L_5L 5L_10L 10L_25L ABOVE_25L"`
}

// Nominee is one entry of the nominee step
type Nominee struct {
	Name         string `json:"name" validate:"required,min=2,max=100,valid_name"`
	Relation     string `json:"relation" validate:"required,oneof=SPOUSE CHILD PARENT SIBLING OTHER"`
	SharePercent int    `json:"share_percent" validate:"required,min=1,max=100"`
	DateOfBirth  string `json:"date_of_birth,omitempty"`
	GuardianName string `json:"guardian_name,omitempty" validate:"omitempty,valid_name"`
}

// NomineePOAForm (Step 3)
type NomineePOAForm struct {
	OptOut     bool      `json:"opt_out"`
	Nominees   []Nominee `json:"nominees" validate:"max=3,dive"`
	POAConsent bool      `json:"poa_consent"`
}

// BankForm (Step 4)
type BankForm struct {
	AccountHolder string `json:"account_holder" validate:"required,min=2,max=100,valid_name"`
	AccountNumber string `json:"account_number" validate:"required,numeric,min=9,max=18"`
	IFSC          string `json:"ifsc" validate:"required,valid_ifsc"`
	AccountType   string `json:"account_type" validate:"required,oneof=SAVINGS CURRENT"`
}

// ExchangeForm (Step 5)
type ExchangeForm struct {
	Segments        []string `json:"segments" validate:"required,min=1,dive,oneof=equity fno commodity currency"`
	ExperienceYears int      `json:"experience_years" validate:"min=0,max=60"`
	DDPIConsent     bool     `json:"ddpi_consent"`
}

// CompletionForm (Step 6)
type CompletionForm struct {
	DeclarationAccepted bool `json:"declaration_accepted" validate:"required"`
	ESignConsent        bool `json:"esign_consent"`
}

// Normalize trims input before validation
func (f *SigninForm) Normalize() {
	f.Mobile = strings.ReplaceAll(strings.TrimSpace(f.Mobile), " ", "")
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

// Normalize upper-cases identifiers the registrars expect in capitals
func (f *PersonalDetailsForm) Normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.FatherName = strings.TrimSpace(f.FatherName)
	f.PAN = strings.ToUpper(strings.TrimSpace(f.PAN))
	f.Gender = strings.ToUpper(f.Gender)
	f.MaritalStatus = strings.ToUpper(f.MaritalStatus)
	f.City = strings.TrimSpace(f.City)
	f.Pincode = strings.TrimSpace(f.Pincode)
}

func (f *BankForm) Normalize() {
	f.AccountHolder = strings.TrimSpace(f.AccountHolder)
	f.AccountNumber = strings.TrimSpace(f.AccountNumber)
	f.IFSC = strings.ToUpper(strings.TrimSpace(f.IFSC))
	f.AccountType = strings.ToUpper(f.AccountType)
}

func (f *ExchangeForm) Normalize() {
	for i, s := range f.Segments {
		f.Segments[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// NewStepForm returns an empty form for step, or nil when the step has no typed
// form (custom sequences). Callers decode the payload into the returned pointer.
func NewStepForm(step StepID) interface{} {
	switch step {
	case StepSignin:
		return &SigninForm{}
	case StepPersonalDetails:
		return &PersonalDetailsForm{}
	case StepNomineePOA:
		return &NomineePOAForm{}
	case StepBank:
		return &BankForm{}
	case StepExchange:
		return &ExchangeForm{}
	case StepCompletion:
		return &CompletionForm{}
	default:
		return nil
	}
}
