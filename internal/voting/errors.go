package voting

import (
	"errors"
	"sort"
	"strings"
)

// ErrPermissionDenied is returned when a requester touches a vote they do not own.
var ErrPermissionDenied = errors.New("voting: cannot change another user's vote")

// Form field names used as keys in ValidationErrors.
const (
	FieldValue = "value"
	FieldMovie = "movie"
	FieldUser  = "user"
)

// ValidationErrors collects field-level and form-level problems with a vote
// submission.
type ValidationErrors struct {
	Fields   map[string][]string
	NonField []string
}

func (e *ValidationErrors) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationErrors) addNonField(msg string) {
	e.NonField = append(e.NonField, msg)
}

func (e *ValidationErrors) empty() bool {
	return len(e.Fields) == 0 && len(e.NonField) == 0
}

// Has reports whether the given field has at least one error.
func (e *ValidationErrors) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationErrors) Error() string {
	parts := make([]string, 0, len(e.Fields)+len(e.NonField))
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], "; "))
	}
	parts = append(parts, e.NonField...)
	return "invalid vote: " + strings.Join(parts, ", ")
}

// AsValidationErrors unwraps err into *ValidationErrors when it is one.
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var verr *ValidationErrors
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
