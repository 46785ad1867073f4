package validation

import "errors"

var (
	// ErrRuleNotSupported is returned when a rule name is not in the registry.
	ErrRuleNotSupported = errors.New("validation rule not supported")

	// ErrInvalidRuleArgs is returned when a rule's arguments cannot be used to build it.
	ErrInvalidRuleArgs = errors.New("invalid validation rule arguments")

	// ErrFailedToParseRules is returned when a rule document cannot be decoded.
	ErrFailedToParseRules = errors.New("failed to parse validation rules")
)
