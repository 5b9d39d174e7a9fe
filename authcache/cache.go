package authcache

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var (
	// ErrNoCredentials reports that the server demanded authentication and
	// none are available for the caller.
	ErrNoCredentials = errors.New("no credentials available")
	// ErrRejected reports that the server rejected the credentials of the
	// current generation; retrying with the same ones cannot succeed.
	ErrRejected = errors.New("credentials rejected by server")
)

// Identity names the local user a transaction runs on behalf of.
// Credentials are tracked per identity.
type Identity uint32

// Credentials is one username/password pair.
type Credentials struct {
	Username string
	Password string
}

// IAuthCache hands credentials to outgoing requests and tracks whether the
// current generation of them has already been rejected. The generation
// pointer is owned by the transaction and carried across its retries.
type IAuthCache interface {
	Apply(ctx context.Context, id Identity, req *http.Request, priorStatus int, gen *uint64) error
	MarkValid(ctx context.Context, id Identity, req *http.Request, gen uint64) error
	InvalidateProxy(ctx context.Context) error
}

type Cache struct {
	mu     sync.Mutex
	server *Credentials
	proxy  *Credentials
	gen    uint64

	validated *lru.Cache[string, uint64]
}

const validatedEntries = 64

func New(server *Credentials, proxy *Credentials) (*Cache, error) {
	validated, err := lru.New[string, uint64](validatedEntries)
	if err != nil {
		return nil, fmt.Errorf("create validated credential cache failed, err:%w", err)
	}
	return &Cache{server: server, proxy: proxy, gen: 1, validated: validated}, nil
}

// SetServerCredentials replaces the server credentials and bumps the
// generation, which re-arms transactions whose previous attempt failed.
func (c *Cache) SetServerCredentials(cred Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.server = &cred
	c.gen++
}

// SetProxyCredentials replaces the proxy credentials and bumps the
// generation.
func (c *Cache) SetProxyCredentials(cred Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proxy = &cred
	c.gen++
}

// Apply attaches the stored credentials to req. priorStatus is the status
// of the previous attempt of the same transaction, or zero on the first
// try. When the previous attempt was a 401/407 and it already carried the
// current credential generation, Apply refuses instead of looping.
func (c *Cache) Apply(ctx context.Context, id Identity, req *http.Request, priorStatus int, gen *uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch priorStatus {
	case http.StatusUnauthorized:
		if c.server == nil {
			return ErrNoCredentials
		}
		if *gen == c.gen {
			return ErrRejected
		}
	case http.StatusProxyAuthRequired:
		if c.proxy == nil {
			return ErrNoCredentials
		}
		if *gen == c.gen {
			return ErrRejected
		}
	}
	if c.server != nil {
		req.Header.Set("Authorization", basicToken(*c.server))
	}
	if c.proxy != nil {
		req.Header.Set("Proxy-Authorization", basicToken(*c.proxy))
	}
	*gen = c.gen
	return nil
}

// MarkValid records that the credentials of generation gen were accepted
// for the request's host. Subsequent rejections of an older generation can
// then be retried instead of failed.
func (c *Cache) MarkValid(ctx context.Context, id Identity, req *http.Request, gen uint64) error {
	key := validatedKey(id, req.URL.Host)
	if prev, ok := c.validated.Get(key); ok && prev == gen {
		return nil
	}
	c.validated.Add(key, gen)
	logutil.GetLogger(ctx).Debug("credentials validated",
		zap.Uint32("identity", uint32(id)), zap.String("host", req.URL.Host), zap.Uint64("generation", gen))
	return nil
}

// Validated reports whether some credential generation was ever accepted
// for the identity/host pair.
func (c *Cache) Validated(id Identity, host string) bool {
	_, ok := c.validated.Get(validatedKey(id, host))
	return ok
}

// InvalidateProxy drops the proxy credentials. Called after every proxy
// settings change; the old proxy's credentials are useless for the new one.
func (c *Cache) InvalidateProxy(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proxy == nil {
		return nil
	}
	c.proxy = nil
	c.gen++
	logutil.GetLogger(ctx).Info("proxy credentials invalidated")
	return nil
}

func validatedKey(id Identity, host string) string {
	return fmt.Sprintf("%d|%s", id, host)
}

func basicToken(cred Credentials) string {
	raw := cred.Username + ":" + cred.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}
