// Package validation decides whether national identifiers and phone numbers
// are well formed. Every function is pure and total over strings.
package validation

const (
	// NationalIDLength is the padded width of a national identifier.
	NationalIDLength = 9
	// PhoneNumberLength is the exact length of a mobile phone number.
	PhoneNumberLength = 10
	// PhonePrefix starts every accepted phone number.
	PhonePrefix = "05"
)

// NationalID reports whether id is a valid 9-digit national identifier.
//
// The id is left-padded with zeros to 9 digits. Digits at even positions count
// as-is; digits at odd positions are doubled and reduced by 9 when the product
// exceeds 9. The id is valid when the sum is a multiple of 10. Empty ids,
// non-ASCII-digit characters and ids longer than 9 digits are rejected.
func NationalID(id string) bool {
	if id == "" || len(id) > NationalIDLength || !allDigits(id) {
		return false
	}

	pad := NationalIDLength - len(id)
	sum := 0
	for i := 0; i < NationalIDLength; i++ {
		digit := 0
		if i >= pad {
			digit = int(id[i-pad] - '0')
		}
		if i%2 == 1 {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
	}
	return sum%10 == 0
}

// PhoneNumber reports whether phone is "05" followed by exactly 8 digits.
func PhoneNumber(phone string) bool {
	return len(phone) == PhoneNumberLength &&
		phone[:len(PhonePrefix)] == PhonePrefix &&
		allDigits(phone)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
