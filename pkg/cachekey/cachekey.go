package cachekey

import (
	"strings"

	apperrors "github.com/ReOpAu/react-starter-kit-sub002/pkg/errors"
)

// Namespace prefixes. The formats are shared with the browser and must stay
// bit-exact.
const (
	SearchPrefix = "search:"
	DetailPrefix = "detail:"
)

// Namespace identifies which part of the result store a key addresses.
type Namespace string

const (
	NamespaceSearch  Namespace = "search"
	NamespaceDetail  Namespace = "detail"
	NamespaceUnknown Namespace = ""
)

// Key is a normalized result store key. Only this package produces keys.
type Key string

// String returns the raw store key
func (k Key) String() string {
	return string(k)
}

// Namespace returns the namespace encoded in the key prefix
func (k Key) Namespace() Namespace {
	switch {
	case strings.HasPrefix(string(k), SearchPrefix):
		return NamespaceSearch
	case strings.HasPrefix(string(k), DetailPrefix):
		return NamespaceDetail
	default:
		return NamespaceUnknown
	}
}

// NormalizeSearchKey derives the search-results key for a query.
func NormalizeSearchKey(query string) (Key, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", apperrors.New(apperrors.CodeCacheKeyMismatch, apperrors.ErrorContext{
			Query:   query,
			Missing: "query",
		})
	}
	return Key(SearchPrefix + trimmed), nil
}

// NormalizeDetailKey derives the place-detail key for a place identifier.
func NormalizeDetailKey(id string) (Key, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", apperrors.New(apperrors.CodeCacheKeyMismatch, apperrors.ErrorContext{
			PlaceID: id,
			Missing: "place_id",
		})
	}
	return Key(DetailPrefix + trimmed), nil
}

// ExtractQuery returns the query a search key was derived from. Keys from
// other namespaces are returned unchanged.
func ExtractQuery(key Key) string {
	return strings.TrimPrefix(string(key), SearchPrefix)
}

// IsSearchKey reports whether a raw store key belongs to the search namespace.
func IsSearchKey(raw string) bool {
	return strings.HasPrefix(raw, SearchPrefix)
}

// IsDetailKey reports whether a raw store key belongs to the detail namespace.
func IsDetailKey(raw string) bool {
	return strings.HasPrefix(raw, DetailPrefix)
}
