package sectionflow

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Message is a single validation finding tied to a field where one applies.
type Message struct {
	Field string `json:"field,omitempty"`
	Text  string `json:"text"`
}

func (m Message) String() string {
	if m.Field == "" {
		return m.Text
	}

	return m.Field + ": " + m.Text
}

// ValidationResult is produced once per tier. The UI displays Errors and Warnings
// verbatim so the shape is part of the boundary contract.
type ValidationResult struct {
	IsValid  bool      `json:"isValid"`
	Errors   []Message `json:"errors"`
	Warnings []Message `json:"warnings"`
}

// Validation holds both tiers for one entity. The database tier gates every write; the
// business tier only gates the higher lifecycle actions and is otherwise advisory.
type Validation struct {
	Database ValidationResult `json:"database"`
	Business ValidationResult `json:"business"`
}

// Status maps the combined outcome to the marker stamped onto the persisted payload.
// It assumes the database tier passed, as nothing is persisted otherwise.
func (v Validation) Status() ValidationStatus {
	if !v.Business.IsValid {
		return ValidationStatusHasWarnings
	}

	return ValidationStatusValid
}

// BusinessRule inspects one entity and returns advisory findings. Rules never block a
// save; they are collected into the business tier result.
type BusinessRule func(e Entity) []Message

// Validator produces the two-tier validation for section entities. The database tier is
// driven by struct tags, the business tier by the rules registered per section kind.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// Validate runs both tiers over the entity. The database tier checks structure and
// format, which the remote store would reject outright. The business tier runs the
// provided rules and surfaces findings as warnings.
func (v *Validator) Validate(e Entity, rules []BusinessRule) Validation {
	result := Validation{
		Database: ValidationResult{IsValid: true},
		Business: ValidationResult{IsValid: true},
	}

	err := v.validate.Struct(e)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			// A non-field error means the value itself could not be inspected.
			result.Database.IsValid = false
			result.Database.Errors = append(result.Database.Errors, Message{
				Text: err.Error(),
			})
		} else {
			result.Database.IsValid = false
			for _, fe := range verrs {
				result.Database.Errors = append(result.Database.Errors, Message{
					Field: fe.Field(),
					Text:  describeFieldError(fe),
				})
			}
		}
	}

	for _, rule := range rules {
		result.Business.Warnings = append(result.Business.Warnings, rule(e)...)
	}

	if len(result.Business.Warnings) > 0 {
		result.Business.IsValid = false
	}

	return result
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid4":
		return "must be a valid GUID"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
