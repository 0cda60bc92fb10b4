// Package phone normalizes subscriber numbers to E.164 for a configurable
// home region, using libphonenumber metadata.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/noah-isme/campus-feed-api/pkg/config"
)

var (
	// ErrEmpty is returned for blank input.
	ErrEmpty = errors.New("phone number is empty")
	// ErrInvalidCharacters is returned for input with letters or symbols.
	ErrInvalidCharacters = errors.New("phone number contains invalid characters")
	// ErrInvalidNumber is returned when the digits do not form a valid number
	// of the home region, for example one digit too many or too few.
	ErrInvalidNumber = errors.New("phone number is not valid for the region")
	// ErrForeignNumber is returned for an international number of another country.
	ErrForeignNumber = errors.New("phone number belongs to another country")
)

// Normalizer converts local or international input into "+<cc><nsn>".
type Normalizer struct {
	region      string
	countryCode int
}

// NewNormalizer builds a normalizer for the CLDR region in cfg (ET, ID, ...).
func NewNormalizer(cfg config.PhoneConfig) (*Normalizer, error) {
	region := strings.ToUpper(strings.TrimSpace(cfg.Region))
	cc := phonenumbers.GetCountryCodeForRegion(region)
	if cc == 0 {
		return nil, fmt.Errorf("unknown phone region %q", cfg.Region)
	}
	return &Normalizer{region: region, countryCode: cc}, nil
}

// Region returns the home region code.
func (n *Normalizer) Region() string { return n.region }

// Normalize returns the E.164 form of raw. Separators (spaces, dashes, dots,
// parentheses) are ignored; anything else is rejected. Numbers are never
// truncated to fit.
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmpty
	}
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		case r == '+' && i == 0:
		default:
			return "", ErrInvalidCharacters
		}
	}

	num, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidNumber, err)
	}
	if int(num.GetCountryCode()) != n.countryCode {
		return "", ErrForeignNumber
	}
	if !phonenumbers.IsValidNumberForRegion(num, n.region) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
