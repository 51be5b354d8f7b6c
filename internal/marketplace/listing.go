package marketplace

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawListing is a listing record exactly as the feed delivered it. Nothing
// about it is trusted: identifiers may be missing, timestamps arrive as either
// epoch numbers or truncated ISO strings, and prices are string-encoded with
// stray markers. Every access that can fail goes through an explicit parse
// method returning an ok flag.
type RawListing struct {
	ID         any    `json:"id"`
	TokenID    any    `json:"token_id"`
	Name       string `json:"name"`
	Price      any    `json:"price"`
	FloorPrice any    `json:"floor_price"`
	ListedAt   any    `json:"listed_at"`
	Backdrop   string `json:"backdrop"`
	PhotoURL   string `json:"photo_url"`
}

// AcceptedListing is a RawListing that cleared the freshness and drop checks,
// carrying the computed drop percent rounded to one decimal place.
type AcceptedListing struct {
	RawListing
	DropPercent decimal.Decimal
}

// Identifier resolves the listing key, preferring id over token_id.
func (l RawListing) Identifier() (string, bool) {
	if id, ok := stringValue(l.ID); ok {
		return id, true
	}
	return stringValue(l.TokenID)
}

// ListedEpoch parses listed_at into epoch seconds. Numeric values are taken
// as-is; strings are truncated at the first dot (the feed emits sub-second
// fractions) and parsed as a bare ISO timestamp, falling back to a numeric
// parse of the whole string.
func (l RawListing) ListedEpoch() (int64, bool) {
	switch v := l.ListedAt.(type) {
	case float64:
		return int64(v), true
	case string:
		return epochFromString(v)
	default:
		return 0, false
	}
}

// PriceAmount parses the asking price.
func (l RawListing) PriceAmount() (decimal.Decimal, bool) {
	return decimalValue(l.Price)
}

// FloorAmount parses the collection floor price.
func (l RawListing) FloorAmount() (decimal.Decimal, bool) {
	return decimalValue(l.FloorPrice)
}

// DisplayName returns the listing name, or a placeholder when absent.
func (l RawListing) DisplayName() string {
	if strings.TrimSpace(l.Name) == "" {
		return "Unknown"
	}
	return l.Name
}

const listedAtLayout = "2006-01-02T15:04:05"

func epochFromString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	head, _, _ := strings.Cut(s, ".")
	if ts, err := time.Parse(listedAtLayout, head); err == nil {
		return ts.Unix(), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

func stringValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

// decimalValue coerces a price field to a decimal. The feed wraps approximate
// floors in a leading "~" and occasionally emits thousands separators.
func decimalValue(v any) (decimal.Decimal, bool) {
	var raw string
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		raw = t
	default:
		return decimal.Decimal{}, false
	}

	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "~")
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
