package utils

import (
	"regexp"
	"strings"
)

var cnMobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

// NormalizePhoneNumber strips formatting and an optional +86 prefix so the
// same number always stores as 11 bare digits.
func NormalizePhoneNumber(phoneNumber string) string {
	re := regexp.MustCompile(`\D`)
	digits := re.ReplaceAllString(phoneNumber, "")

	if strings.HasPrefix(digits, "86") && len(digits) == 13 {
		digits = digits[2:]
	}

	return digits
}

// ValidatePhoneNumber reports whether the input is a mainland China mobile
// number (11 digits, 1[3-9] prefix).
func ValidatePhoneNumber(phoneNumber string) bool {
	return cnMobileRe.MatchString(NormalizePhoneNumber(phoneNumber))
}

// MaskPhoneNumber hides the middle four digits for display.
func MaskPhoneNumber(phoneNumber string) string {
	digits := NormalizePhoneNumber(phoneNumber)
	if len(digits) != 11 {
		return phoneNumber
	}
	return digits[:3] + "****" + digits[7:]
}
