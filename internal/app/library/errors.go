package library

import "errors"

// Errors returned by library operations. Only ErrConflict is worth retrying.
// Storage failures are returned wrapped and unclassified.
var (
	// ErrNotFound is returned when the user or a requested course does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyOwned is returned by a single-course purchase of a course the user owns.
	ErrAlreadyOwned = errors.New("course already purchased")
	// ErrEmptyCart is returned when checkout resolves to no course ids.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrNotEnrolled is returned when progress is recorded against an unowned course.
	ErrNotEnrolled = errors.New("not enrolled in course")
	// ErrConflict is returned when concurrent writers kept winning the race for the user record.
	ErrConflict = errors.New("user record changed concurrently, try again")
)

// Kind classifies err for API responses. Unknown errors are "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyOwned):
		return "already_owned"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrNotEnrolled):
		return "not_enrolled"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
