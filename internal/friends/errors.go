package friends

import "errors"

// Error is a domain failure of a friend graph operation. Tag is a stable,
// machine-readable identifier; Message is suitable for end users.
type Error struct {
	Tag     string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrUserNotFound indicates the referenced username does not resolve to a user.
	ErrUserNotFound = &Error{Tag: "user_not_found", Message: "the specified username does not exist"}
	// ErrSelfFriend indicates the subject targeted themself.
	ErrSelfFriend = &Error{Tag: "self_friend", Message: "you can't add yourself as a friend"}
	// ErrDuplicateRequest indicates a request from the subject to the target already exists.
	ErrDuplicateRequest = &Error{Tag: "duplicate_request", Message: "application with this user and applicant already exists"}
	// ErrAlreadyFriends indicates the parties are already friends.
	ErrAlreadyFriends = &Error{Tag: "already_friends", Message: "you are already friends"}
	// ErrNoPendingRequest indicates there is no request to accept or reject.
	ErrNoPendingRequest = &Error{Tag: "no_pending_request", Message: "there are no such requests to accept or reject, send a request first"}
	// ErrNotFriends indicates an unfriend attempt without a friendship.
	ErrNotFriends = &Error{Tag: "not_friends", Message: "you don't have this user as a friend"}
)

// IsDomainError reports whether err carries a friend graph domain error.
func IsDomainError(err error) bool {
	var domainErr *Error
	return errors.As(err, &domainErr)
}

// Tag returns the machine-readable tag for err, or "internal" when err is not
// a domain error.
func Tag(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Tag
	}
	return "internal"
}
