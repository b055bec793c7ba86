package imgdata

import "errors"

// Expected failures. Each maps to a notice shown to the user; anything else
// coming out of this package is unexpected.
var (
	ErrMissingCredentials = errors.New("Username and password are required.")
	ErrDuplicateUsername  = errors.New("Username already exists.")
	ErrInvalidCredentials = errors.New("Invalid credentials")

	ErrMissingFile     = errors.New("No file selected")
	ErrUnsupportedType = errors.New("Unsupported file type")
	ErrMissingPassword = errors.New("Password is required to hide location")
	ErrAccessDenied    = errors.New("Access denied")
	ErrDeleteFailed    = errors.New("Failed to delete image")
	ErrWrongPassword   = errors.New("Wrong password")

	ErrAlreadyLiked  = errors.New("You already liked this image")
	ErrNotLiked      = errors.New("You have not liked this image")
	ErrImageNotFound = errors.New("Image not found")

	ErrUserNotFound     = errors.New("User not found")
	ErrNoIPToBan        = errors.New("User has no IP address to ban")
	ErrAlreadyBanned    = errors.New("IP already banned")
	ErrUserOrIPNotFound = errors.New("User or IP not found")
	ErrNotBanned        = errors.New("User was not banned")
)

var userFacing = []error{
	ErrMissingCredentials, ErrDuplicateUsername, ErrInvalidCredentials,
	ErrMissingFile, ErrUnsupportedType, ErrMissingPassword, ErrAccessDenied, ErrDeleteFailed, ErrWrongPassword,
	ErrAlreadyLiked, ErrNotLiked, ErrImageNotFound,
	ErrUserNotFound, ErrNoIPToBan, ErrAlreadyBanned, ErrUserOrIPNotFound, ErrNotBanned,
}

// Returns the message to show the user for err, or false if err is not one
// of the expected failures above.
func UserMessage(err error) (string, bool) {
	for _, expected := range userFacing {
		if errors.Is(err, expected) {
			return expected.Error(), true
		}
	}
	return "", false
}
