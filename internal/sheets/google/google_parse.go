package google

import (
	"fmt"
	"strconv"
	"strings"
)

// indexIDColumn maps transaction IDs to 1-based rows from the values of
// column A. Header, blank and non-numeric cells are skipped. The row count
// includes cleared rows so appends never reuse them.
func indexIDColumn(values [][]any) (map[int64]int, int) {
	index := make(map[int64]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if id, ok := parseID(row[0]); ok {
			index[id] = i + 1
		}
	}
	return index, len(values)
}

func parseID(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x <= 0 || x != float64(int64(x)) {
			return 0, false
		}
		return int64(x), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return parseID(fmt.Sprint(v))
	}
}

// columnLetter converts a 1-based column number to A1 notation.
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
