package httpkit

import (
	"fmt"
	"net/http"
	"time"
)

// ParseHTTPDate parses the RFC 1123, RFC 850 and asctime date formats
// allowed in HTTP headers (rfc 2616 section 3.3.1).
func ParseHTTPDate(s string) (time.Time, error) {
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse http date failed, value:%q, err:%w", s, err)
	}
	return t, nil
}

// FormatHTTPDate formats t as an RFC 1123 date in GMT, the only format
// a client may generate (rfc 2616 section 3.3.1).
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
