package dal

import (
	"context"
	"fmt"
	"strings"

	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/go-stockutil/typeutil"
)

const RequiredValidator = `required`

var DefaultRequiredMessage = `{PATH} is required`

// An AsyncValidatorFunc inspects the value found at a field path and reports whether it is valid.  A
// non-nil error means the check itself could not be performed, which is distinct from the value being
// invalid.  The target identifies the record and the concrete path being validated so that validators
// may update the value in place.
type AsyncValidatorFunc func(ctx context.Context, value interface{}, target *FieldTarget) (bool, error)

// A FieldValidator is attached to a Field and run whenever records are validated against the
// collection the field belongs to.
type FieldValidator struct {
	Kind     string             `json:"kind"`
	Message  string             `json:"message,omitempty"`
	Validate AsyncValidatorFunc `json:"-"`
}

// The record currently being validated, positioned at a concrete field path.
type FieldTarget struct {
	Record *Record
	Path   string
}

func NewFieldTarget(record *Record, path string) *FieldTarget {
	return &FieldTarget{
		Record: record,
		Path:   path,
	}
}

// Replace the value at the target path.  Targets without a record are silently ignored.
func (self *FieldTarget) Set(value interface{}) {
	if self == nil || self.Record == nil {
		return
	}

	if err := self.Record.SetPath(self.Path, value); err != nil {
		log.Warningf("cannot update field %q: %v", self.Path, err)
	}
}

func (self *FieldTarget) Get() interface{} {
	if self == nil || self.Record == nil {
		return nil
	}

	return self.Record.GetNested(self.Path)
}

// Render a validation message template, replacing {PATH} with the field path and {VALUE} with the
// value that was submitted.
func FormatMessage(template string, path string, value interface{}) string {
	msg := strings.Replace(template, `{PATH}`, path, -1)

	if strings.Contains(msg, `{VALUE}`) {
		msg = strings.Replace(msg, `{VALUE}`, fmt.Sprintf("%v", value), -1)
	}

	return msg
}

func ValidateNotEmpty(value interface{}) error {
	if value == nil || typeutil.IsEmpty(value) {
		return fmt.Errorf("expected non-empty value, got: %v", value)
	}

	return nil
}

func validateRequired(ctx context.Context, value interface{}, target *FieldTarget) (bool, error) {
	return (ValidateNotEmpty(value) == nil), nil
}
