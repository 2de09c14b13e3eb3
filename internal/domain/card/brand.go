package card

import (
	"regexp"

	billingerrors "plans/internal/errors"
)

// Brand is a card scheme identified by a fixed number pattern.
type Brand struct {
	Name    string
	pattern *regexp.Regexp
}

// NewBrand declares a brand. A nil pattern is allowed but Accept will fail.
func NewBrand(name string, pattern *regexp.Regexp) *Brand {
	return &Brand{Name: name, pattern: pattern}
}

// Accept reports whether number belongs to the brand. It only fails when the
// brand was declared without a pattern.
func (b *Brand) Accept(number string) (bool, error) {
	if b.pattern == nil {
		return false, billingerrors.ErrNoPattern.Withf("%s", b.Name)
	}
	return b.pattern.MatchString(number), nil
}

func (b *Brand) String() string {
	return b.Name
}

// Supported brands. The table is closed; adding a scheme means shipping a
// new version of this package.
var (
	Visa            = NewBrand("Visa", regexp.MustCompile(`^4\d{12}(\d{3})?$`))
	MasterCard      = NewBrand("MasterCard", regexp.MustCompile(`^(5[1-5]\d{4}|677189)\d{10}$`))
	AmericanExpress = NewBrand("Amex", regexp.MustCompile(`^3[47]\d{13}$`))
	Discover        = NewBrand("Discover", regexp.MustCompile(`^(6011|65\d{2})\d{12}$`))
)

// All lists every brand in detection order.
var All = []*Brand{Visa, MasterCard, AmericanExpress, Discover}

// BrandByName looks a brand up by its display name.
func BrandByName(name string) *Brand {
	for _, b := range All {
		if b.Name == name {
			return b
		}
	}
	return nil
}
