package locator

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// quotation_<inquiryNumber>_<timestamp>
	inquiryNamePattern = regexp.MustCompile(`^quotation_(.+)_(\d{10,})$`)
	// quotation-<timestamp>-<random>
	randomNamePattern = regexp.MustCompile(`^quotation-(\d{10,})-([A-Za-z0-9]+)$`)
)

// Filename is a requested artifact name broken into the parts the strategies match on
type Filename struct {
	Raw  string
	Stem string

	// InquiryNumber is set for quotation_<inquiryNumber>_<timestamp> names
	InquiryNumber string

	// Timestamp is set when the name embeds a creation time
	Timestamp    time.Time
	HasTimestamp bool

	// Window is the accepted distance between Timestamp and a record's creation time
	Window time.Duration
}

// ParseFilename extracts the stem and any embedded inquiry number or timestamp
func ParseFilename(name string) Filename {
	f := Filename{Raw: name, Stem: stripExtension(name)}

	if m := randomNamePattern.FindStringSubmatch(f.Stem); m != nil {
		if ts, ok := parseTimestamp(m[1]); ok {
			f.Timestamp, f.HasTimestamp = ts, true
			f.Window = 5 * time.Second
		}
		return f
	}

	if m := inquiryNamePattern.FindStringSubmatch(f.Stem); m != nil {
		f.InquiryNumber = m[1]
		if ts, ok := parseTimestamp(m[2]); ok {
			f.Timestamp, f.HasTimestamp = ts, true
			f.Window = 10 * time.Second
		}
	}
	return f
}

func stripExtension(name string) string {
	if len(name) >= 4 && strings.EqualFold(name[len(name)-4:], ".pdf") {
		return name[:len(name)-4]
	}
	return name
}

// parseTimestamp reads up to 10 digits as epoch seconds and longer values as epoch milliseconds
func parseTimestamp(digits string) (time.Time, bool) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if len(digits) <= 10 {
		return time.Unix(n, 0).UTC(), true
	}
	return time.UnixMilli(n).UTC(), true
}
