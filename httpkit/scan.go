package httpkit

// ScanToken splits s at the end of a leading token using the rules of
// rfc 2616 section 2.2:
//
//	token      = 1*<any CHAR except CTLs or separators>
//	separators = "(" | ")" | "<" | ">" | "@" | "," | ";" | ":" | "\" | <">
//	           | "/" | "[" | "]" | "?" | "=" | "{" | "}" | SP | HT
func ScanToken(s string) (token, rest string) {
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func isTokenChar(c byte) bool {
	if c <= 31 || c == 0x7f {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"',
		'/', '[', ']', '?', '=', '{', '}', ' ', '\t':
		return false
	}
	return true
}

// SkipLWS returns s with a leading run of linear white space removed
// (rfc 2616 section 2.2):
//
//	LWS = [CRLF] 1*( SP | HT )
//
// A CRLF is consumed only when followed by SP or HT.
func SkipLWS(s string) string {
	for len(s) > 0 {
		if s[0] == ' ' || s[0] == '\t' {
			s = s[1:]
			continue
		}
		if len(s) >= 3 && s[0] == '\r' && s[1] == '\n' && (s[2] == ' ' || s[2] == '\t') {
			s = s[3:]
			continue
		}
		break
	}
	return s
}

// ScanCodedURL splits s at the '>' terminating a Coded-URL (rfc 2518
// section 9.4). s starts at the character after the opening '<'; rest
// starts at the '>' or is empty if the string ended first.
func ScanCodedURL(s string) (url, rest string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '>' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}
