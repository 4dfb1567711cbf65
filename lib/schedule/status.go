package schedule

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"precisebet/lib/dataset"
)

// ParseStatusList reads a comma separated list of status codes. A leading "e"
// inverts it: every known code except the listed ones. An empty string means
// no restriction and yields nil.
func ParseStatusList(text string) ([]int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	exclude := strings.HasPrefix(text, "e")
	if exclude {
		text = text[1:]
	}

	var codes []int
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid status code %q: %w", part, err)
		}
		codes = append(codes, code)
	}

	if exclude {
		var kept []int
		for _, code := range dataset.Statuses() {
			if !slices.Contains(codes, code) {
				kept = append(kept, code)
			}
		}
		codes = kept
	}

	slices.Sort(codes)
	return slices.Compact(codes), nil
}

// FormatStatusList renders codes with their names, "0(未开始),4(已结束)".
func FormatStatusList(codes []int) string {
	if codes == nil {
		return "*"
	}
	parts := make([]string, len(codes))
	for i, code := range codes {
		parts[i] = fmt.Sprintf("%d(%s)", code, dataset.StatusName(code))
	}
	return strings.Join(parts, ",")
}
