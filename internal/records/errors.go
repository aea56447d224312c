package records

import "errors"

// ErrMetadataNotFound signals that no user_metadata row exists for the user.
var ErrMetadataNotFound = errors.New("user metadata not found")
