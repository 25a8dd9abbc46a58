package session

import "errors"

// ErrNotActive is returned when a control action does not apply to the
// session's current state.
var ErrNotActive = errors.New("action not applicable to current session state")
