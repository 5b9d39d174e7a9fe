package httpkit

const upperhex = "0123456789ABCDEF"

// EscapePath percent-escapes a relative resource path for use in a
// request URL. Everything that is not a legal URL character (rfc 2396)
// is escaped, plus ";" and "?" which are not legal pchar characters, and
// ":" so that names in the root directory do not look like absolute URLs
// with some weird scheme. "/" is left alone: the input is a slash
// separated path.
func EscapePath(path string) string {
	hex := 0
	for i := 0; i < len(path); i++ {
		if shouldEscape(path[i]) {
			hex++
		}
	}
	if hex == 0 {
		return path
	}
	buf := make([]byte, 0, len(path)+2*hex)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if shouldEscape(c) {
			buf = append(buf, '%', upperhex[c>>4], upperhex[c&0xf])
		} else {
			buf = append(buf, c)
		}
	}
	return string(buf)
}

func shouldEscape(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	}
	switch c {
	// unreserved marks (rfc 2396 section 2.3)
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return false
	// reserved characters legal in a path
	case '/', '$', '&', '+', ',', '=', '@':
		return false
	}
	// everything else, including ':', ';' and '?'
	return true
}
