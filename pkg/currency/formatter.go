package currency

import (
	"fmt"
	"math"
)

// Format renders "<code> <grouped integer>", e.g. "PKR 115,500".
func Format(code string, amount float64) string {
	rounded := math.Round(amount)

	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	formatted := addThousandsSeparator(fmt.Sprintf("%.0f", rounded), ",")
	if negative {
		formatted = "-" + formatted
	}

	return code + " " + formatted
}

// Missing is the placeholder shown when no usable amount exists.
func Missing(code string) string {
	return code + " --"
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
