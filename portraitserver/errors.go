package portraitserver

import (
	"errors"
	"net/http"
)

// Public error messages. Causes are logged, never returned to the client.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidAPIKey    = "Invalid API key"
	msgRateLimited      = "Rate limit exceeded. Please try again later."
	msgMissingFields    = "Missing required fields: image, characterId"
	msgBodyTooLarge     = "Request body too large"
	msgInvalidFormat    = "Invalid image format. Must be base64 data URI"
	msgBase64Decode     = "Failed to decode base64 image"
	msgInvalidImageData = "Invalid image data"
	msgCreateDirectory  = "Failed to create upload directory"
	msgSaveImage        = "Failed to save image"
	msgPortraitNotFound = "Portrait not found"
	msgReadPortrait     = "Failed to read portrait"
	msgInternal         = "Internal server error"
	msgNotFound         = "Not found"
)

var (
	ErrPortraitNotFound = errors.New("portrait not found")
	ErrCreateDirectory  = errors.New("create portrait directory")
	ErrSaveImage        = errors.New("save portrait")
	ErrInvalidImage     = errors.New("invalid image data")
)

// apiError is a terminal request failure: an HTTP status, the message sent
// to the caller and the underlying cause.
type apiError struct {
	Status  int
	Message string
	Err     error
}

func (e *apiError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *apiError) Unwrap() error { return e.Err }

func badRequest(msg string, err error) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: msg, Err: err}
}

func internalError(msg string, err error) *apiError {
	return &apiError{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// storeError maps a PortraitStore.Save failure onto the response taxonomy.
func storeError(err error) *apiError {
	if errors.Is(err, ErrCreateDirectory) {
		return internalError(msgCreateDirectory, err)
	}
	return internalError(msgSaveImage, err)
}
