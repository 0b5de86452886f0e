package emv

import (
	"regexp"
	"strings"
)

// Brand is the payment network a card belongs to.
type Brand string

const (
	Visa            Brand = "Visa"
	Mastercard      Brand = "Mastercard"
	AmericanExpress Brand = "American Express"
	Discover        Brand = "Discover"
	JCB             Brand = "JCB"
	DinersClub      Brand = "Diners Club"
	UnionPay        Brand = "UnionPay"
	Unknown         Brand = "Unknown"
)

// panRules is evaluated in order; the first match wins.
var panRules = []struct {
	prefix *regexp.Regexp
	brand  Brand
}{
	{regexp.MustCompile(`^4`), Visa},
	{regexp.MustCompile(`^5[1-5]`), Mastercard},
	{regexp.MustCompile(`^3[47]`), AmericanExpress},
	{regexp.MustCompile(`^6(?:011|5)`), Discover},
	{regexp.MustCompile(`^35(?:2[89]|[3-8])`), JCB},
	{regexp.MustCompile(`^30[0-5]`), DinersClub},
	{regexp.MustCompile(`^3095`), DinersClub},
	{regexp.MustCompile(`^36`), DinersClub},
	{regexp.MustCompile(`^3[89]`), DinersClub},
	{regexp.MustCompile(`^62`), UnionPay},
}

// ridBrands maps the RID plus the first PIX byte (10 hex digits) of an AID.
var ridBrands = map[string]Brand{
	"A000000003": Visa,
	"A000000004": Mastercard,
	"A000000025": AmericanExpress,
	"A000000065": JCB,
	"A000000152": Discover,
	"A000000324": UnionPay,
}

// NormalizePAN strips the spaces and dashes a human may type.
func NormalizePAN(pan string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(pan)
}

// ClassifyByPAN returns the brand owning the PAN's issuer prefix.
func ClassifyByPAN(pan string) Brand {
	pan = NormalizePAN(pan)
	for _, r := range panRules {
		if r.prefix.MatchString(pan) {
			return r.brand
		}
	}
	return Unknown
}

// ClassifyByAID returns the brand of an AID given as hex. Only the first
// five bytes are considered.
func ClassifyByAID(aid string) Brand {
	if len(aid) < 10 {
		return Unknown
	}
	if b, ok := ridBrands[strings.ToUpper(aid[:10])]; ok {
		return b
	}
	return Unknown
}

// PreferredBrand keeps the PAN brand unless it is Unknown.
func PreferredBrand(byPAN, byAID Brand) Brand {
	if byPAN != Unknown && byPAN != "" {
		return byPAN
	}
	if byAID == "" {
		return Unknown
	}
	return byAID
}

// FormatPAN groups the digits for display: 4-6-5 for American Express,
// blocks of four otherwise.
func FormatPAN(pan string) string {
	pan = NormalizePAN(pan)

	if ClassifyByPAN(pan) == AmericanExpress && len(pan) == 15 {
		return pan[:4] + " " + pan[4:10] + " " + pan[10:]
	}

	var sb strings.Builder
	for i, r := range pan {
		if i > 0 && i%4 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
