package k8s

import (
	"strings"

	utilrand "k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/apimachinery/pkg/util/validation"
)

const testNameSuffixLength = 8

// SanitizeToDNSLabel converts an arbitrary string to a lowercase alphanumeric
// string with hyphens as the only separator. Consecutive hyphens are collapsed
// and leading/trailing hyphens are trimmed.
func SanitizeToDNSLabel(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return ""
	}

	var builder strings.Builder

	prevHyphen := false

	for _, char := range trimmed {
		switch {
		case (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9'):
			builder.WriteRune(char)

			prevHyphen = false
		default:
			if !prevHyphen {
				builder.WriteRune('-')

				prevHyphen = true
			}
		}
	}

	return strings.Trim(builder.String(), "-")
}

// TestName returns a unique DNS-1123 label "<prefix>-<random>" for resources
// created by a test run. An empty prefix becomes "test" and long prefixes are
// truncated so the result fits in a label.
func TestName(prefix string) string {
	base := SanitizeToDNSLabel(prefix)
	if base == "" {
		base = "test"
	}

	maxBase := validation.DNS1123LabelMaxLength - testNameSuffixLength - 1
	if len(base) > maxBase {
		base = strings.TrimRight(base[:maxBase], "-")
	}

	return base + "-" + utilrand.String(testNameSuffixLength)
}
