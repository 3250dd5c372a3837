package google

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseServiceKey accepts a service account key as raw JSON or as base64
// encoded JSON. Escaped "\n" sequences in private_key become real newlines.
func ParseServiceKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("service key is empty")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		decoded, decErr := base64.StdEncoding.DecodeString(raw)
		if decErr != nil {
			return nil, fmt.Errorf("service key is neither JSON nor base64: %w", err)
		}
		if err := json.Unmarshal(decoded, &fields); err != nil {
			return nil, fmt.Errorf("decoded service key is not JSON: %w", err)
		}
	}

	if pk, ok := fields["private_key"].(string); ok {
		fields["private_key"] = strings.ReplaceAll(pk, `\n`, "\n")
	}
	return json.Marshal(fields)
}

// quoteSheet renders a tab title for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnLetter returns the A1 letter of the n-th column, 1-based.
func columnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// columnsRange is the open-ended A:<last> range of a partition.
func columnsRange(partition string, width int) string {
	return fmt.Sprintf("%s!A:%s", quoteSheet(partition), columnLetter(width))
}

// headerRange is the first row of a partition.
func headerRange(partition string, width int) string {
	return fmt.Sprintf("%s!A1:%s1", quoteSheet(partition), columnLetter(width))
}
