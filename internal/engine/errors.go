package engine

import "errors"

// Validation failures of the access-control engine. All of them are
// recoverable: a failed operation leaves the engine state untouched and the
// caller may retry after fixing the input.
var (
	ErrAlreadyMember    = errors.New("user is already a member")
	ErrNotAuthorized    = errors.New("acting user is not the group admin")
	ErrNoSuchRequest    = errors.New("no such pending request")
	ErrSelfConnection   = errors.New("group cannot connect to itself")
	ErrAlreadyConnected = errors.New("groups are already connected")
	ErrNotAMember       = errors.New("user is not a member")
	ErrMissingImage     = errors.New("post requires an image reference")
	ErrEmptyText        = errors.New("message text is empty")
)

// Lookup failures for unknown entity ids. These are not part of the
// validation error set above; handlers map them to 404s.
var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrProfileNotFound = errors.New("profile not found")
)
