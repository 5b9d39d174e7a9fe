package davops

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xxxsen/davmount/attrcache"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/httpkit"
	"github.com/xxxsen/davmount/transact"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	headerDepth       = "Depth"

	acceptAny       = "*/*"
	contentTypeXML  = "text/xml"
	defaultLockSecs = 600
	// how long a validated cache copy is trusted without asking the server
	defaultValidWindow = 60 * time.Second
)

// Client is the WebDAV operation layer: one method per filesystem
// operation, each building the wire request and delegating to the
// transaction engine.
type Client struct {
	engine *transact.Engine
	base   *url.URL
	attrs  *attrcache.Cache

	lockSecs    int
	validWindow time.Duration
}

type Option func(*Client)

// WithAttrCache lets directory listings seed attributes so a following
// open can skip the network.
func WithAttrCache(c *attrcache.Cache) Option {
	return func(cl *Client) {
		cl.attrs = c
	}
}

// WithLockTimeout sets the Timeout value requested on LOCK, in seconds.
func WithLockTimeout(secs int) Option {
	return func(cl *Client) {
		if secs > 0 {
			cl.lockSecs = secs
		}
	}
}

// WithValidWindow sets how long a validated local copy is trusted before
// open revalidates it with the server.
func WithValidWindow(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.validWindow = d
		}
	}
}

func New(engine *transact.Engine, baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url failed, err:%w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q, err:%w", base.Scheme, transact.ErrInvalid)
	}
	cl := &Client{
		engine:      engine,
		base:        base,
		lockSecs:    defaultLockSecs,
		validWindow: defaultValidWindow,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// pathFor is the unescaped absolute path of a node, with an optional
// child name appended. Directory node paths already end with a slash.
func (c *Client) pathFor(node *entity.Node, name string) string {
	p := c.base.Path
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if node != nil {
		p += node.Path
	}
	if len(name) > 0 {
		if !strings.HasSuffix(p, "/") {
			p += "/"
		}
		p += name
	}
	return p
}

// urlFor builds the request URL for a node, percent-escaping the path.
func (c *Client) urlFor(node *entity.Node, name string) string {
	return c.base.Scheme + "://" + c.base.Host + httpkit.EscapePath(c.pathFor(node, name))
}

func xmlHeaders(depth string) []transact.Header {
	return []transact.Header{
		{Name: headerAccept, Value: acceptAny},
		{Name: headerContentType, Value: contentTypeXML},
		{Name: headerDepth, Value: depth},
	}
}

// responseDate pulls the Date header out of a response as the operation
// timestamp; absent or unparseable dates come back as the zero time.
func responseDate(h http.Header) time.Time {
	v := h.Get("Date")
	if len(v) == 0 {
		return time.Time{}
	}
	t, err := httpkit.ParseHTTPDate(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ifLockHeader is the If production carrying a lock token, e.g.
// "(<opaquelocktoken:...>)".
func ifLockHeader(token string) string {
	return "(<" + token + ">)"
}

func lockIdentity(node *entity.Node) authcache.Identity {
	return authcache.Identity(node.LockIdentity)
}
