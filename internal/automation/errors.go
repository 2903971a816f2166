package automation

import "errors"

var (
	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleExists is returned when creating a rule with a duplicate ID.
	ErrRuleExists = errors.New("rule already exists")

	// ErrInvalidRule is returned when a rule fails validation.
	ErrInvalidRule = errors.New("invalid rule")
)
