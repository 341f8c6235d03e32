package oidc

import (
	"slices"
	"strings"
)

// SplitSpaceDelimited splits a space-delimited parameter into its values,
// dropping empty entries.
func SplitSpaceDelimited(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, " ")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}

// DistinctSpaceDelimited splits a space-delimited parameter into a
// deduplicated set, preserving first-occurrence order.
func DistinctSpaceDelimited(value string) []string {
	parts := SplitSpaceDelimited(value)
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if !slices.Contains(values, part) {
			values = append(values, part)
		}
	}
	return values
}

// ResponseTypesEqual compares two space-delimited response types as
// order-independent token sets, per RFC 6749 §3.1.1 and the OAuth2 multiple
// response types spec: response type "a b" is the same as "b a".
func ResponseTypesEqual(a, b string) bool {
	if a == b {
		return true
	}

	setA := SplitSpaceDelimited(a)
	setB := SplitSpaceDelimited(b)
	if len(setA) != len(setB) {
		return false
	}

	slices.Sort(setA)
	slices.Sort(setB)
	return slices.Equal(setA, setB)
}

// NormalizeResponseType returns the conventional spelling of a supported
// response type, matched order-insensitively. The second return reports
// whether the response type is supported at all.
func NormalizeResponseType(responseType string) (string, bool) {
	for _, supported := range SupportedResponseTypes {
		if ResponseTypesEqual(supported, responseType) {
			return supported, true
		}
	}
	return "", false
}
