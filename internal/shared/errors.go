package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidInput    = fmt.Errorf("invalid input")

	// Reference errors
	ErrInvalidReference = fmt.Errorf("invalid bitable reference")
	ErrWikiNode         = fmt.Errorf("wiki node resolution failed")

	// Authentication errors
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// API and transport errors
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrDecode     = fmt.Errorf("unparseable response payload")
)
