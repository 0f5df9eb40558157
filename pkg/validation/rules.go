package validation

import "fmt"

// Fields carries the raw form values a rule may inspect.
type Fields struct {
	FullName string
	Email    string
	Password string
	Confirm  string
}

// Rule names, stable across releases since they label metrics and report columns.
const (
	RuleNotEmpty             = "not-empty"
	RuleConfirmNotEmpty      = "confirm-not-empty"
	RuleFullNameMinLength    = "fullname-min-length"
	RuleFullNameMaxLength    = "fullname-max-length"
	RuleNoDigitsInName       = "no-digits-in-name"
	RuleEmailFormat          = "email-format"
	RuleEmailLowercaseOnly   = "email-lowercase-only"
	RuleEmailNoPlus          = "email-no-plus"
	RuleEmailDomainDotted    = "email-domain-dotted"
	RulePasswordStrength     = "password-strength"
	RulePasswordHasUppercase = "password-has-uppercase"
	RulePasswordNotCommon    = "password-not-common"
	RulePasswordMaxLength    = "password-max-length"
	RuleFieldsNotPadded      = "fields-not-padded"
	RulePasswordsMatch       = "passwords-match"
)

// Rule is a named predicate over Fields with the message surfaced when it fails.
type Rule struct {
	Name    string
	Message string
	Check   func(Fields) bool
}

// Rules is an ordered list of rules.
type Rules []Rule

// Result is the outcome of a single rule in a full evaluation.
type Result struct {
	Rule   string
	Passed bool
}

// Failure reports the first rule a set of fields did not satisfy.
type Failure struct {
	Rule Rule
}

func (f *Failure) Error() string {
	return fmt.Sprintf("validation: %s: %s", f.Rule.Name, f.Rule.Message)
}

var (
	notEmpty = Rule{RuleNotEmpty, "missing required fields", func(f Fields) bool {
		return NotEmpty(f.FullName, f.Email, f.Password)
	}}
	confirmNotEmpty = Rule{RuleConfirmNotEmpty, "password confirmation is required", func(f Fields) bool {
		return ConfirmNotEmpty(f.Confirm)
	}}
	fieldsNotPadded = Rule{RuleFieldsNotPadded, "fields should not start or end with spaces", func(f Fields) bool {
		return FieldsNotPadded(f.FullName, f.Email, f.Password)
	}}
	fullNameMinLength = Rule{RuleFullNameMinLength, "full name must be at least 3 characters", func(f Fields) bool {
		return FullNameMinLength(f.FullName)
	}}
	fullNameMaxLength = Rule{RuleFullNameMaxLength, "full name is too long", func(f Fields) bool {
		return FullNameMaxLength(f.FullName)
	}}
	noDigitsInName = Rule{RuleNoDigitsInName, "name should not contain numbers", func(f Fields) bool {
		return NoDigitsInName(f.FullName)
	}}
	emailFormat = Rule{RuleEmailFormat, "invalid email format", func(f Fields) bool {
		return EmailFormat(f.Email)
	}}
	emailLowercaseOnly = Rule{RuleEmailLowercaseOnly, "email should be lowercase only", func(f Fields) bool {
		return EmailLowercaseOnly(f.Email)
	}}
	emailNoPlus = Rule{RuleEmailNoPlus, "email should not contain '+'", func(f Fields) bool {
		return EmailNoPlus(f.Email)
	}}
	emailDomainDotted = Rule{RuleEmailDomainDotted, "email domain is incomplete", func(f Fields) bool {
		return EmailDomainDotted(f.Email)
	}}
	passwordStrength = Rule{RulePasswordStrength, "password must be 8+ characters and include uppercase, lowercase, number and special symbol", func(f Fields) bool {
		return PasswordStrength(f.Password)
	}}
	passwordHasUppercase = Rule{RulePasswordHasUppercase, "password must include an uppercase letter", func(f Fields) bool {
		return PasswordHasUppercase(f.Password)
	}}
	passwordNotCommon = Rule{RulePasswordNotCommon, "password is too common", func(f Fields) bool {
		return PasswordNotCommon(f.Password)
	}}
	passwordMaxLength = Rule{RulePasswordMaxLength, "password is too long", func(f Fields) bool {
		return PasswordMaxLength(f.Password)
	}}
	passwordsMatch = Rule{RulePasswordsMatch, "passwords do not match", func(f Fields) bool {
		return PasswordsMatch(f.Password, f.Confirm)
	}}
)

// RegistrationRules returns the rules the register endpoint enforces, in the
// order they are checked.
func RegistrationRules() Rules {
	return Rules{
		notEmpty,
		fieldsNotPadded,
		fullNameMinLength,
		fullNameMaxLength,
		noDigitsInName,
		emailFormat,
		emailLowercaseOnly,
		passwordStrength,
		passwordNotCommon,
		passwordMaxLength,
	}
}

// ReportRules returns every known rule, including the confirmation checks and
// the diagnostic-only email and password rules.
func ReportRules() Rules {
	return Rules{
		notEmpty,
		confirmNotEmpty,
		fieldsNotPadded,
		fullNameMinLength,
		fullNameMaxLength,
		noDigitsInName,
		emailFormat,
		emailDomainDotted,
		emailLowercaseOnly,
		emailNoPlus,
		passwordStrength,
		passwordHasUppercase,
		passwordNotCommon,
		passwordMaxLength,
		passwordsMatch,
	}
}

// FirstFailure returns the first rule f does not satisfy.
func (rs Rules) FirstFailure(f Fields) (Rule, bool) {
	for _, r := range rs {
		if !r.Check(f) {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate is FirstFailure expressed as an error; it returns a *Failure or nil.
func (rs Rules) Validate(f Fields) error {
	if r, failed := rs.FirstFailure(f); failed {
		return &Failure{Rule: r}
	}
	return nil
}

// Evaluate runs every rule without short-circuiting.
func (rs Rules) Evaluate(f Fields) []Result {
	results := make([]Result, 0, len(rs))
	for _, r := range rs {
		results = append(results, Result{Rule: r.Name, Passed: r.Check(f)})
	}
	return results
}

// Names lists rule names in order.
func (rs Rules) Names() []string {
	names := make([]string, 0, len(rs))
	for _, r := range rs {
		names = append(names, r.Name)
	}
	return names
}
