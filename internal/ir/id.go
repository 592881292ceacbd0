package ir

import (
	"fmt"
	"regexp"
	"strconv"
)

// IDWidth is the number of zero-padded digits after the "A" prefix.
const IDWidth = 6

// MaxIDNumber is the largest number representable in IDWidth digits.
const MaxIDNumber = 999999

// ShardLen is the length of the directory shard taken from an identifier.
const ShardLen = 3

var idPattern = regexp.MustCompile(`A\d{6}`)

// ID identifies one catalog entry, e.g. "A000045".
type ID string

// FormatID renders n as a fixed-width identifier.
func FormatID(n int) ID {
	return ID(fmt.Sprintf("A%0*d", IDWidth, n))
}

// ParseID validates s and returns it as an ID.
func ParseID(s string) (ID, error) {
	if len(s) != IDWidth+1 || !idPattern.MatchString(s) {
		return "", fmt.Errorf("invalid sequence id %q", s)
	}
	return ID(s), nil
}

// Number returns the numeric suffix, or -1 for a malformed ID.
func (id ID) Number() int {
	if len(id) != IDWidth+1 {
		return -1
	}
	n, err := strconv.Atoi(string(id[1:]))
	if err != nil {
		return -1
	}
	return n
}

// Shard returns the fixed 3-character slice used to bound directory fan-out.
// For A000045 that is "000"; ids A368000..A368999 land in "368".
func (id ID) Shard() string {
	if len(id) < 1+ShardLen {
		return string(id)
	}
	return string(id[1 : 1+ShardLen])
}

func (id ID) String() string { return string(id) }

// ExtractIDs returns every identifier embedded in text, de-duplicated and in
// order of first appearance.
func ExtractIDs(text string) []ID {
	matches := idPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	ids := make([]ID, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		ids = append(ids, ID(m))
	}
	return ids
}
