package dal

import (
	"fmt"
	"sort"
	"strings"
)

const (
	ERR_COLLECTION_NOT_FOUND = `Collection not found`
)

var CollectionNotFound = fmt.Errorf(ERR_COLLECTION_NOT_FOUND)

func IsCollectionNotFoundErr(err error) bool {
	if err == nil {
		return false
	}

	return (err.Error() == ERR_COLLECTION_NOT_FOUND)
}

func IsNotExistError(err error) bool {
	if err == nil {
		return false
	}

	return strings.HasSuffix(err.Error(), ` does not exist`)
}

func IsExistError(err error) bool {
	if err == nil {
		return false
	}

	return strings.HasSuffix(err.Error(), ` already exists`)
}

// Describes a single field that failed validation.
type FieldError struct {
	Path    string      `json:"path"`
	Kind    string      `json:"kind"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

func (self FieldError) Error() string {
	return self.Message
}

// Returned when one or more fields of a record did not pass validation.
type ValidationError struct {
	Collection string       `json:"collection"`
	Errors     []FieldError `json:"errors"`
}

func (self *ValidationError) Error() string {
	messages := make([]string, len(self.Errors))

	for i, ferr := range self.Errors {
		messages[i] = ferr.Message
	}

	return fmt.Sprintf("%s validation failed: %s", self.Collection, strings.Join(messages, `; `))
}

// Retrieve the error for a given field path.  The second return value is false if that path passed
// validation.
func (self *ValidationError) Field(path string) (FieldError, bool) {
	for _, ferr := range self.Errors {
		if ferr.Path == path {
			return ferr, true
		}
	}

	return FieldError{}, false
}

func (self *ValidationError) push(ferr FieldError) {
	self.Errors = append(self.Errors, ferr)

	sort.Slice(self.Errors, func(i, j int) bool {
		if self.Errors[i].Path == self.Errors[j].Path {
			return self.Errors[i].Kind < self.Errors[j].Kind
		}

		return self.Errors[i].Path < self.Errors[j].Path
	})
}

func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
