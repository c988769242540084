package models

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bareRaceID     = regexp.MustCompile(`^\d{12}$`)
	raceIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`race_id=(\d{12})`),
		regexp.MustCompile(`/race/(\d{12})`),
		regexp.MustCompile(`/(?:shutuba|result)\.html.*?(\d{12})`),
		regexp.MustCompile(`(\d{12})`),
	}
)

// ExtractRaceID returns the 12-digit race id from a bare id or a race page URL
// such as https://race.netkeiba.com/race/shutuba.html?race_id=202406030811.
func ExtractRaceID(urlOrID string) (string, error) {
	s := strings.TrimSpace(urlOrID)
	if bareRaceID.MatchString(s) {
		return s, nil
	}
	for _, re := range raceIDPatterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRaceID, urlOrID)
}
