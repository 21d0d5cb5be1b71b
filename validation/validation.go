package validation

import (
	"net/mail"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Violations maps a field name to a translatable error code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies other into v without overwriting existing entries.
func (v Violations) Merge(other Violations) {
	for k, code := range other {
		if _, exists := v[k]; !exists {
			v[k] = code
		}
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MinLength(field, value string, n int, v Violations) {
	if _, set := v[field]; set {
		return
	}
	if len([]rune(value)) < n {
		v[field] = "too_short"
	}
}

func Match(field, value, other string, v Violations) {
	if value != other {
		v[field] = "mismatch"
	}
}

func Email(field, value string, v Violations) {
	if _, set := v[field]; set {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil || !strings.Contains(value, "@") {
		v[field] = "invalid_email"
	}
}

func NonNegativeInt(field string, val int, v Violations) {
	if val < 0 {
		v[field] = "must_be_non_negative"
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_be_non_negative"
	}
}

// ParseDecimal parses a form value; malformed input records "invalid_number".
func ParseDecimal(field, raw string, v Violations) decimal.Decimal {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		v[field] = "required"
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		v[field] = "invalid_number"
		return decimal.Zero
	}
	return d
}

// ParseInt parses a form value; malformed input records "invalid_number".
func ParseInt(field, raw string, v Violations) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v[field] = "required"
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v[field] = "invalid_number"
		return 0
	}
	return n
}

// ParseID parses a positive identifier; zero or malformed input records "required".
func ParseID(field, raw string, v Violations) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || n == 0 {
		v[field] = "required"
		return 0
	}
	return uint(n)
}
