package feed

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var numberNoise = strings.NewReplacer("R$", "", "%", "", " ", "", "\u00a0", "", "\t", "")

// ParseNumber reads a spreadsheet cell as a decimal. It accepts currency and percent signs,
// pt-BR ("1.234,56") and en ("1,234.56") grouping, and a comma as the only separator ("12,5").
// An accounting-style "(10)" is negative.
func ParseNumber(cell string) (decimal.Decimal, error) {
	s := numberNoise.Replace(strings.TrimSpace(cell))
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("no number in %q", cell)
	}

	dot, comma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("no number in %q", cell)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
