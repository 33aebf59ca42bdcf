package mega

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"mediavault/internal/domain"
)

// One listing line is `FLAGS SIZE DATE TIME NAME`. The first flag character
// `d` marks a directory, SIZE may carry a K/M/G unit suffix and NAME may
// contain spaces. TIME is sometimes folded into DATE, leaving only four
// positional fields before the name.
var (
	flagsRe = regexp.MustCompile(`^[d-][a-z-]{0,7}$`)
	timeRe  = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
)

// ParseListingLine parses one line of `ls -l` style output from the remote
// store CLI. It returns false for blank lines and headers.
func ParseListingLine(line string) (domain.RemoteEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return domain.RemoteEntry{}, false
	}

	flags := fields[0]
	if !flagsRe.MatchString(flags) {
		return domain.RemoteEntry{}, false
	}

	// flags, size, date are fixed; a separate time field may or may not
	// follow before the name starts.
	nameIndex := 3
	if len(fields) > 4 && timeRe.MatchString(fields[3]) {
		nameIndex = 4
	}

	name := restAfterFields(line, nameIndex)
	if name == "" {
		return domain.RemoteEntry{}, false
	}

	return domain.RemoteEntry{
		Name:        name,
		IsDirectory: strings.HasPrefix(flags, "d"),
		SizeBytes:   parseSize(fields[1]),
	}, true
}

// ParseListing parses a whole listing, dropping lines that are not entries.
func ParseListing(output string) []domain.RemoteEntry {
	var entries []domain.RemoteEntry
	for _, line := range strings.Split(output, "\n") {
		if entry, ok := ParseListingLine(strings.TrimRight(line, "\r")); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// parseSize turns "1.5G", "700M", "12K" or "123" into bytes. Anything
// unparseable yields 0 instead of failing the line.
func parseSize(raw string) int64 {
	var unit int64 = 1
	switch {
	case strings.HasSuffix(raw, "G"), strings.HasSuffix(raw, "g"):
		unit = 1 << 30
	case strings.HasSuffix(raw, "M"), strings.HasSuffix(raw, "m"):
		unit = 1 << 20
	case strings.HasSuffix(raw, "K"), strings.HasSuffix(raw, "k"):
		unit = 1 << 10
	}

	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) || r == '.' {
			digits.WriteRune(r)
		}
	}
	magnitude, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0
	}
	return int64(magnitude * float64(unit))
}

// restAfterFields returns the remainder of line after skipping n
// whitespace-separated fields, preserving any interior spacing of the name.
func restAfterFields(line string, n int) string {
	i := 0
	for field := 0; field < n; field++ {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		for i < len(line) && line[i] != ' ' {
			i++
		}
	}
	return strings.TrimSpace(line[i:])
}
