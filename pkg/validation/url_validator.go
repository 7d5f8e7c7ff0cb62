package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/tea-leaf-inspector-go/internal/errors"
)

// Image source schemes.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeAzure = "azure"
	SchemeFile  = "file"
)

// URLValidator decides which image sources may be fetched.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{SchemeHTTP, SchemeHTTPS},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ParseSource parses an image source. A bare path is reported with the file scheme.
func ParseSource(source string) (*url.URL, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, apperrors.NewValidationError("Image source cannot be empty", nil)
	}
	u, err := url.Parse(source)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid image source format", err)
	}
	if u.Scheme == "" {
		return &url.URL{Scheme: SchemeFile, Path: source}, nil
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// ValidateImageURL validates if the provided source is acceptable for diagnosis
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	parsedURL, err := ParseSource(imageURL)
	if err != nil {
		return err
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("Image source scheme not allowed", nil).
			WithDetails(parsedURL.Scheme)
	}

	switch parsedURL.Scheme {
	case SchemeFile:
		if parsedURL.Path == "" {
			return apperrors.NewValidationError("File source must have a path", nil)
		}
		return nil
	case SchemeAzure:
		if parsedURL.Host == "" || strings.Trim(parsedURL.Path, "/") == "" {
			return apperrors.NewValidationError("Azure source must be azure://container/blob", nil)
		}
		return nil
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
