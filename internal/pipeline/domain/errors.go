package domain

import "pipeline_backend/platform/apperr"

// Error codes returned to callers. Each maps to a distinct user-visible reason.
const (
	CodeValidationFailed      = "validation_failed"
	CodeProtected             = "protected"
	CodeImmutable             = "immutable"
	CodeDisallowedTransition  = "disallowed_transition"
	CodeMissingRequiredFields = "missing_required_fields"
	CodeInconsistent          = "inconsistent"
	CodeNotFound              = "not_found"
	CodeNameTaken             = "name_taken"
	CodeStageInactive         = "stage_inactive"
)

// ErrValidation reports a missing or out-of-range stage field.
func ErrValidation(message string) *apperr.Error {
	return apperr.Validation(message).WithCode(CodeValidationFailed)
}

// ErrProtected reports an attempt to delete a default stage.
func ErrProtected(message string) *apperr.Error {
	return apperr.Forbidden(message).WithCode(CodeProtected)
}

// ErrImmutable reports an attempt to change order or category of a default stage.
func ErrImmutable(message string) *apperr.Error {
	return apperr.Conflict(message).WithCode(CodeImmutable)
}

// ErrDisallowedTransition reports a move outside the source stage's allowed set.
func ErrDisallowedTransition(message string) *apperr.Error {
	return apperr.Unprocessable(message).WithCode(CodeDisallowedTransition)
}

// ErrMissingRequiredFields reports the deal fields that block entry into a stage.
func ErrMissingRequiredFields(missing []string) *apperr.Error {
	return apperr.Unprocessable("deal is missing fields required by the target stage").
		WithCode(CodeMissingRequiredFields).
		WithDetails(map[string][]string{"missingFields": missing})
}

// ErrInconsistent reports a reorder payload that is not a permutation of the current stages.
func ErrInconsistent(message string) *apperr.Error {
	return apperr.Conflict(message).WithCode(CodeInconsistent)
}

// ErrNotFound reports an unknown stage for the company.
func ErrNotFound() *apperr.Error {
	return apperr.NotFound("pipeline stage not found").WithCode(CodeNotFound)
}

// ErrNameTaken reports a case-insensitive name clash within a company.
func ErrNameTaken(name string) *apperr.Error {
	return apperr.Conflict("a stage named \"" + name + "\" already exists").WithCode(CodeNameTaken)
}

// ErrStageInactive reports a move into a stage that is not accepting deals.
func ErrStageInactive(name string) *apperr.Error {
	return apperr.Unprocessable("stage \"" + name + "\" is inactive").WithCode(CodeStageInactive)
}
