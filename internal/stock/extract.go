package stock

import (
	"regexp"
	"strconv"
)

// The store's rejection messages embed the remaining quantity in localized
// prose rather than a structured field, e.g. "Số lượng không đủ. Còn lại: 3".
// Scraping it is fragile by nature: if the message format ever changes,
// extraction stops matching and the gate falls back to the last known
// in-stock total. The pattern is isolated here so a structured server
// field can replace it without touching any call site.
var remainingPattern = regexp.MustCompile(`(?i)còn lại\s*:?\s*(\d+)`)

// ExtractRemaining pulls the labeled remaining count out of a rejection
// message. The second return is false when the message carries none.
func ExtractRemaining(message string) (int, bool) {
	m := remainingPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
