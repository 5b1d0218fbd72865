package parser

import "errors"

var (
	// ErrDeletedArticle marks an article page that only carries the site's
	// not-found notice. It is an expected outcome, not a malformed page.
	ErrDeletedArticle = errors.New("article deleted")
	ErrInvalidFormat  = errors.New("invalid format")
	ErrFieldNotFound  = errors.New("field not found")
)

// FieldError reports a required field that no extraction strategy located.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return "field not found: " + e.Field
}

func (e *FieldError) Is(target error) bool {
	return target == ErrFieldNotFound
}

func fieldNotFound(field string) error {
	return &FieldError{Field: field}
}
