package transact

import (
	"fmt"
	"runtime"
)

const clientVersion = "3.0"

// BuildUserAgent assembles the product token sent with every request,
// e.g. "WebDAVFS/3.0 linux/go1.24 (amd64)". The mirrored comment marks
// traffic replicated from another source.
func BuildUserAgent(version string, mirrored bool) string {
	if len(version) == 0 {
		version = clientVersion
	}
	ua := fmt.Sprintf("WebDAVFS/%s %s/%s (%s)", version, runtime.GOOS, runtime.Version(), runtime.GOARCH)
	if mirrored {
		ua += " (mirrored)"
	}
	return ua
}
