package packagemanager

import (
	"regexp"
	"strings"
)

var freezeLine = regexp.MustCompile(`^([^=]+)==([^=]+)$`)

// ParseFreezeLine parses one "name==version" line. Anything else, including
// editable "-e" entries and comments, is reported as not ok.
func ParseFreezeLine(line string) (PackageRecord, bool) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	m := freezeLine.FindStringSubmatch(line)
	if m == nil {
		return PackageRecord{}, false
	}

	return PackageRecord{Name: m[1], Version: m[2], Provider: ProviderName}, true
}

// ParseFreeze parses a whole freeze listing, skipping lines that do not parse.
func ParseFreeze(output string) []PackageRecord {
	records := []PackageRecord{}
	for _, line := range strings.Split(output, "\n") {
		if record, ok := ParseFreezeLine(line); ok {
			records = append(records, record)
		}
	}
	return records
}
