// Package uri implements the aifs:// and aifs-snap:// identifier schemes
// from spec §6.1.
package uri

import (
	"fmt"
	"regexp"
	"strings"
)

// blake3Pattern matches a 64-character lowercase hex BLAKE3 digest.
var blake3Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// IsValidHash reports whether s is a well-formed BLAKE3 hex digest.
func IsValidHash(s string) bool {
	return blake3Pattern.MatchString(s)
}

// AssetURI builds an aifs:// URI for an asset ID.
func AssetURI(assetID string) (string, error) {
	if !IsValidHash(assetID) {
		return "", fmt.Errorf("invalid BLAKE3 hash: %s", assetID)
	}
	return "aifs://" + assetID, nil
}

// SnapshotURI builds an aifs-snap:// URI for a snapshot ID.
func SnapshotURI(snapshotID string) (string, error) {
	if !IsValidHash(snapshotID) {
		return "", fmt.Errorf("invalid BLAKE3 hash: %s", snapshotID)
	}
	return "aifs-snap://" + snapshotID, nil
}

// ParseAssetURI extracts the asset ID from an aifs:// URI, or "" if invalid.
func ParseAssetURI(u string) string {
	return parseScheme(u, "aifs://")
}

// ParseSnapshotURI extracts the snapshot ID from an aifs-snap:// URI, or "" if invalid.
func ParseSnapshotURI(u string) string {
	return parseScheme(u, "aifs-snap://")
}

func parseScheme(u, scheme string) string {
	if !strings.HasPrefix(u, scheme) {
		return ""
	}
	id := strings.TrimPrefix(u, scheme)
	id = strings.TrimPrefix(id, "/")
	if !IsValidHash(id) {
		return ""
	}
	return id
}

// Kind classifies a parsed URI.
type Kind string

const (
	KindAsset    Kind = "asset"
	KindSnapshot Kind = "snapshot"
	KindUnknown  Kind = "unknown"
)

// Parse classifies any AIFS URI and returns its ID and kind.
func Parse(u string) (id string, kind Kind) {
	if id := ParseAssetURI(u); id != "" {
		return id, KindAsset
	}
	if id := ParseSnapshotURI(u); id != "" {
		return id, KindSnapshot
	}
	return "", KindUnknown
}

// Valid reports whether u is a well-formed AIFS URI of either scheme.
func Valid(u string) bool {
	_, kind := Parse(u)
	return kind != KindUnknown
}
