package utils

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ParseSpotID trims and parses a spot identifier. Spot ids are UUIDs.
func ParseSpotID(raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ParseUserID parses an optional uploader id; empty or malformed ids yield nil.
func ParseUserID(raw string) *uuid.UUID {
	id, ok := ParseSpotID(raw)
	if !ok {
		return nil
	}
	return &id
}

// IsManagedMediaURL reports whether raw is an absolute http(s) URL whose path contains
// the managed storage marker, e.g. "/storage/v1/object/public/".
func IsManagedMediaURL(raw, marker string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || marker == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.Contains(u.EscapedPath(), marker)
}
