package helpers

import (
	"errors"
	"net/url"
	"strings"
)

// GetSplitPart splits target on separate and returns the part at
// index, erroring when there is no such part.
func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// QueryParam returns the named query parameter of a URL, erroring
// when the URL does not parse or the parameter is absent or empty.
func QueryParam(rawURL, name string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	value := u.Query().Get(name)
	if value == "" {
		return "", errors.New("query parameter not found: " + name)
	}
	return value, nil
}

// LastPathSegment returns the final non-empty path segment of a URL.
func LastPathSegment(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return "", errors.New("no path segment in URL")
	}
	return last, nil
}
