package console

import "errors"

// Validation failures. Each one is printed as "** <message> **".
var (
	ErrMissingClassName      = errors.New("class name missing")
	ErrUnknownClass          = errors.New("class doesn't exist")
	ErrMissingIdentifier     = errors.New("instance id missing")
	ErrInstanceNotFound      = errors.New("no instance found")
	ErrMissingAttributeName  = errors.New("attribute name missing")
	ErrMissingAttributeValue = errors.New("value missing")
)

var validationErrors = []error{
	ErrMissingClassName,
	ErrUnknownClass,
	ErrMissingIdentifier,
	ErrInstanceNotFound,
	ErrMissingAttributeName,
	ErrMissingAttributeValue,
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
