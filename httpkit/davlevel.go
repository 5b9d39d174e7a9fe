package httpkit

// ParseDAVLevel extracts the DAV compliance level from a DAV response
// header field-value (rfc 2518 section 9.1):
//
//	DAV    = "DAV" ":" "1" ["," "2"] ["," 1#extend]
//	extend = Coded-URL | token
//
// Coded-URL extends are not in the rfc grammar but Apache 2.x emits them,
// so they are skipped. Returns 0 when DAV is not supported.
func ParseDAVLevel(fieldValue string) int {
	level := 0
	s := fieldValue
	for len(s) > 0 {
		s = SkipLWS(s)
		if len(s) == 0 {
			break
		}
		if s[0] == '<' {
			// Coded-URL extend, eat it
			_, s = ScanCodedURL(s[1:])
			if len(s) > 0 {
				s = s[1:] // skip '>'
			}
		} else {
			var tok string
			tok, s = ScanToken(s)
			if tok == "1" && level < 1 {
				level = 1
			} else if tok == "2" && level < 2 {
				level = 2
			}
		}
		s = SkipLWS(s)
		if len(s) > 0 {
			if s[0] != ',' {
				break
			}
			for len(s) > 0 && s[0] == ',' {
				s = s[1:]
			}
		}
	}
	return level
}
