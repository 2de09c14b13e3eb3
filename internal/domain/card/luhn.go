package card

// Luhn validates a digit string with the mod-10 algorithm. Any non-digit
// makes the number invalid.
func Luhn(number string) bool {
	if !isDigits(number) {
		return false
	}
	return luhnSum(number, false)%10 == 0
}

// LuhnCheckDigit returns the digit that makes prefix+digit Luhn valid.
func LuhnCheckDigit(prefix string) (byte, bool) {
	if !isDigits(prefix) {
		return 0, false
	}
	sum := luhnSum(prefix, true)
	return byte('0' + (10-sum%10)%10), true
}

// luhnSum walks the digits right to left. When doubleFirst is set the
// rightmost digit is doubled, which is the position it takes once a check
// digit is appended.
func luhnSum(number string, doubleFirst bool) int {
	var sum int
	shouldDouble := doubleFirst

	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')

		if shouldDouble {
			digit = digit * 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		shouldDouble = !shouldDouble
	}

	return sum
}
