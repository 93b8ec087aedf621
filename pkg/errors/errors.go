package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeLayout represents a violated site-layout contract
	ErrorTypeLayout ErrorType = "layout"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ScrapeError represents a scraper-specific error
type ScrapeError struct {
	Type     ErrorType
	Retailer string
	Message  string
	// Fragment holds the offending markup when a layout contract is
	// violated, so a wording or selector change on the site can be
	// diagnosed from the log alone.
	Fragment string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Retailer, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Retailer, e.Message)
}

// Unwrap returns the underlying error
func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *ScrapeError) IsRetryable() bool {
	return e.Type == ErrorTypeNetwork
}

// New creates a new ScrapeError
func New(errType ErrorType, retailer, message string, err error) *ScrapeError {
	return &ScrapeError{
		Type:     errType,
		Retailer: retailer,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(retailer, message string, err error) *ScrapeError {
	return New(ErrorTypeNetwork, retailer, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(retailer, message string, err error) *ScrapeError {
	return New(ErrorTypeParsing, retailer, message, err)
}

// NewLayout creates a new layout error carrying the markup fragment
// that the extractor could not make sense of
func NewLayout(retailer, message, fragment string) *ScrapeError {
	e := New(ErrorTypeLayout, retailer, message, nil)
	if len(fragment) > 2048 {
		fragment = fragment[:2048]
	}
	e.Fragment = fragment
	return e
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(retailer string, duration time.Duration) *ScrapeError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, retailer, message, nil)
}

// NewCache creates a new cache error
func NewCache(retailer, message string, err error) *ScrapeError {
	return New(ErrorTypeCache, retailer, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(retailer, message string, err error) *ScrapeError {
	return New(ErrorTypePublisher, retailer, message, err)
}

// NewValidation creates a new validation error
func NewValidation(retailer, message string) *ScrapeError {
	return New(ErrorTypeValidation, retailer, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *ScrapeError {
	return New(ErrorTypeConfiguration, "", message, err)
}
