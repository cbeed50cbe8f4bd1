package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// 2-3 leading digits, optional thousands comma, 3 trailing digits: "31,000", "123456".
	salaryNumRe = regexp.MustCompile(`\d{2,3},?\d{3}`)
	bandRe      = regexp.MustCompile(`(?i)band[\s\-]*(\d+)`)
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// ParseSalary pulls every salary-looking number out of free text.
// It is a heuristic: unrelated numbers of the same shape are included too.
func ParseSalary(text string) (min, max *int) {
	var vals []int
	for _, m := range salaryNumRe.FindAllString(text, -1) {
		n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
		if err != nil {
			continue
		}
		vals = append(vals, n)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return &lo, &hi
}

// ExtractBand returns BAND_<n> for titles such as "Staff Nurse Band-5", or "".
func ExtractBand(title string) string {
	m := bandRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return "BAND_" + m[1]
}
