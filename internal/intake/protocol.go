package intake

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var protocolPattern = regexp.MustCompile(`^\d{8}-[0-9A-F]{6}$`)

// NewProtocol returns a ticket protocol number of the form YYYYMMDD-XXXXXX, the date
// part taken from now in UTC and the suffix random hex.
func NewProtocol(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return now.UTC().Format("20060102") + "-" + suffix
}

// ValidProtocol reports whether p has the protocol number format.
func ValidProtocol(p string) bool {
	return protocolPattern.MatchString(p)
}
