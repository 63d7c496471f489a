package ingest

import (
	"regexp"
	"strings"
)

// Matches an angle-bracketed address or a bare address anywhere in the field.
var addressPattern = regexp.MustCompile(`<(.+)>|(\S+@\S+\.\S+)`)

// ExtractAddress unwraps `"Display Name" <addr@host>` to addr@host. Fields
// that match nothing are passed through unchanged; upstream address fields are
// not under our control and must never fail ingestion.
func ExtractAddress(raw string) string {
	match := addressPattern.FindString(raw)
	if match == "" {
		return raw
	}
	return strings.Trim(match, "<>")
}

// FirstRecipient returns the first address of a comma-separated recipient
// list, unwrapped.
func FirstRecipient(raw string) string {
	first, _, _ := strings.Cut(raw, ",")
	return ExtractAddress(strings.TrimSpace(first))
}
