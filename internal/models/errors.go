package models

import "github.com/AdguardTeam/golibs/errors"

// Validation errors returned by the rule factories.  Callers should match them
// with errors.Is, since the returned errors carry the violated constraint.
const (
	// ErrInvalidTrigger is returned by NewTrigger when the requested trigger
	// would not be accepted by the content blocker.
	ErrInvalidTrigger errors.Error = "invalid trigger"

	// ErrInvalidAction is returned by NewAction when the action type and the
	// selector do not fit together.
	ErrInvalidAction errors.Error = "invalid action"
)
