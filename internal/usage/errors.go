package usage

import "errors"

// ErrLimitReached indicates the user has no scans left in the current window.
var ErrLimitReached = errors.New("scan limit reached")
