package proxyconf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	defaultHTTPPort  = 80
	defaultHTTPSPort = 443
)

// Settings are the process proxy settings for plain and TLS traffic.
type Settings struct {
	HTTPEnabled  bool
	HTTPHost     string
	HTTPPort     int
	HTTPSEnabled bool
	HTTPSHost    string
	HTTPSPort    int
}

// ISource supplies the current system proxy configuration. The caller
// polls a notification descriptor elsewhere and calls Store.Refresh when
// it fires.
type ISource interface {
	CopySettings(ctx context.Context) (Settings, error)
}

// InvalidateFunc drops cached proxy credentials; called after every
// refresh because the old proxy's credentials are useless for the new one.
type InvalidateFunc func(ctx context.Context) error

// Store holds the proxy settings shared by every transaction. Reads and
// writes happen under one mutex; the generation counter lets transports
// detect that their snapshot is stale.
type Store struct {
	mu         sync.Mutex
	cur        Settings
	gen        uint64
	src        ISource
	invalidate InvalidateFunc
}

func NewStore(src ISource, invalidate InvalidateFunc) *Store {
	return &Store{src: src, invalidate: invalidate, gen: 1}
}

// Refresh re-derives the settings wholesale from the source. The state is
// slammed to the disabled baseline first so a partial failure degrades to
// "no proxy" instead of keeping stale data.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.cur = Settings{}
	s.gen++
	if s.src != nil {
		got, err := s.src.CopySettings(ctx)
		if err != nil {
			s.mu.Unlock()
			logutil.GetLogger(ctx).Error("copy proxy settings failed", zap.Error(err))
			return s.runInvalidate(ctx)
		}
		if got.HTTPEnabled && len(got.HTTPHost) > 0 {
			if got.HTTPPort == 0 {
				got.HTTPPort = defaultHTTPPort
			}
			s.cur.HTTPEnabled = true
			s.cur.HTTPHost = got.HTTPHost
			s.cur.HTTPPort = got.HTTPPort
		}
		if got.HTTPSEnabled && len(got.HTTPSHost) > 0 {
			if got.HTTPSPort == 0 {
				got.HTTPSPort = defaultHTTPSPort
			}
			s.cur.HTTPSEnabled = true
			s.cur.HTTPSHost = got.HTTPSHost
			s.cur.HTTPSPort = got.HTTPSPort
		}
	}
	s.mu.Unlock()
	return s.runInvalidate(ctx)
}

func (s *Store) runInvalidate(ctx context.Context) error {
	if s.invalidate == nil {
		return nil
	}
	if err := s.invalidate(ctx); err != nil {
		return fmt.Errorf("invalidate proxy credentials failed, err:%w", err)
	}
	return nil
}

// Settings returns a snapshot of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Generation changes every refresh; transports built against an older
// generation must be rebuilt.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// ProxyFunc adapts the store to http.Transport.Proxy. The snapshot is
// taken per request so in-flight transactions keep a consistent view.
func (s *Store) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		cur := s.Settings()
		switch req.URL.Scheme {
		case "https":
			if cur.HTTPSEnabled {
				return &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", cur.HTTPSHost, cur.HTTPSPort)}, nil
			}
		default:
			if cur.HTTPEnabled {
				return &url.URL{Scheme: "http", Host: fmt.Sprintf("%s:%d", cur.HTTPHost, cur.HTTPPort)}, nil
			}
		}
		return nil, nil
	}
}
