package card

import (
	"errors"
	"testing"
	"time"

	billingerrors "plans/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestCard_IsValidAt(t *testing.T) {
	tests := []struct {
		name string
		card *Card
		want bool
	}{
		{"valid visa", New("John Doe", "4111111111111111", "111", 12, 2090), true},
		{"expired", New("John Doe", "4111111111111111", "111", 12, 1990), false},
		{"not digits", New("John Doe", "abcd", "111", 1, 2090), false},
		{"separators", New("John Doe", "4111-1111-1111-1111", "111", 12, 2090), false},
		{"luhn failure", New("John Doe", "4111123111111111", "111", 12, 2090), false},
		{"missing holder", New(" ", "4111111111111111", "111", 12, 2090), false},
		{"missing cvv", New("John Doe", "4111111111111111", "", 12, 2090), false},
		{"month out of range", New("John Doe", "4111111111111111", "111", 13, 2090), false},
		{"empty number", New("John Doe", "", "111", 12, 2090), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.card.IsValidAt(referenceNow))
		})
	}
}

func TestLuhn_AppendedCheckDigitIsValid(t *testing.T) {
	prefixes := []string{"411111111111111", "37828224631000", "601111111111111", "0", "98765432109876543210"}

	for _, prefix := range prefixes {
		digit, ok := LuhnCheckDigit(prefix)
		require.True(t, ok)
		number := prefix + string(digit)
		assert.True(t, Luhn(number), "expected %s to pass", number)

		for i := 0; i < len(number); i++ {
			flipped := []byte(number)
			flipped[i] = '0' + (flipped[i]-'0'+1)%10
			assert.False(t, Luhn(string(flipped)), "flipping position %d of %s should fail", i, number)
		}
	}
}

func TestLuhn_RejectsNonDigits(t *testing.T) {
	assert.False(t, Luhn(""))
	assert.False(t, Luhn("4111 1111 1111 1111"))
	_, ok := LuhnCheckDigit("12a")
	assert.False(t, ok)
}

func TestCard_IsExpiredAt_MonthBoundary(t *testing.T) {
	c := New("John Doe", "4111111111111111", "111", 3, 2026)

	assert.False(t, c.IsExpiredAt(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, c.IsExpiredAt(time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, c.IsExpiredAt(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)))

	december := New("John Doe", "4111111111111111", "111", 12, 2026)
	assert.False(t, december.IsExpiredAt(time.Date(2026, time.December, 31, 12, 0, 0, 0, time.UTC)))
	assert.True(t, december.IsExpiredAt(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBrand_Accept(t *testing.T) {
	tests := []struct {
		number string
		brand  *Brand
	}{
		{"4111111111111111", Visa},
		{"4222222222222", Visa},
		{"5555555555554444", MasterCard},
		{"6771890000000000", MasterCard},
		{"378282246310005", AmericanExpress},
		{"6011111111111117", Discover},
		{"6500000000000002", Discover},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			matches := 0
			for _, b := range All {
				ok, err := b.Accept(tt.number)
				require.NoError(t, err)
				if ok {
					matches++
					assert.Same(t, tt.brand, b)
				}
			}
			assert.Equal(t, 1, matches)
		})
	}
}

func TestBrand_AcceptWithoutPattern(t *testing.T) {
	broken := NewBrand("Broken", nil)

	ok, err := broken.Accept("4111111111111111")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, billingerrors.ErrNoPattern))
}

func TestCard_MaskingHelpers(t *testing.T) {
	c := New("John Doe", "4111111111111111", "111", 12, 2090)

	assert.Equal(t, "411111", c.FirstSix())
	assert.Equal(t, "1111", c.LastFour())
	assert.Equal(t, "411111******1111", c.Masked())
	assert.Equal(t, "", c.BrandName())
	assert.Same(t, Visa, BrandByName("Visa"))
	assert.Nil(t, BrandByName("Diners"))
}

func TestCard_Fingerprint(t *testing.T) {
	key := []byte("fingerprint-secret")
	a := New("John Doe", "4111111111111111", "111", 12, 2090)
	b := New("Someone Else", "4111111111111111", "999", 12, 2090)

	assert.Len(t, a.Fingerprint(key), 64)
	assert.Equal(t, a.Fingerprint(key), b.Fingerprint(key), "holder and cvv are not part of the digest")
	assert.NotEqual(t, a.Fingerprint(key), a.Fingerprint([]byte("other-secret")))
	assert.NotEqual(t, a.Fingerprint(key), New("John Doe", "4111111111111111", "111", 11, 2090).Fingerprint(key))
	assert.Len(t, a.Fingerprint(make([]byte, 100)), 64)
}
