package apperrors

import "errors"

// Error codes shared by the planner, HTTP layer and CLI.
const (
	CodeInvalidInput        = "invalid_input"
	CodeNoPlaceSelected     = "no_place_selected"
	CodeClimateUnavailable  = "climate_unavailable"
	CodeCropInfoUnavailable = "crop_info_unavailable"
	CodeHistoryWriteFailed  = "history_write_failed"
	CodeCSVInvalid          = "csv_invalid"
)

// AppError carries a machine readable code next to the user-facing message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap produces a new AppError instance.
func Wrap(code, message string, err error) error {
	if err == nil {
		return &AppError{Code: code, Message: message}
	}
	return &AppError{Code: code, Message: message, Err: err}
}

// IsCode reports whether any AppError in err's chain has the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Message returns the user-facing message of the first AppError in err's chain,
// falling back to err.Error().
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
