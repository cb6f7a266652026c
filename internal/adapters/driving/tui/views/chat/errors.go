package chat

import "errors"

// ErrNoAskService is returned when no ask service is configured.
var ErrNoAskService = errors.New("ask service not available")
