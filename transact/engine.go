package transact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/proxyconf"
	"github.com/xxxsen/davmount/streampool"
	"github.com/xxxsen/davmount/tlstrust"
	"go.uber.org/zap"
)

const (
	// body buffer sizing for the buffered transaction flavor
	bodyBufferSize     = 64 * 1024
	bodyBufferHeadroom = 32 * 1024
)

// EnqueueFunc hands a half-read download to the background completion
// queue. Ownership of the slot transfers with the call; the queue worker
// must call FinishDownload with it.
type EnqueueFunc func(ctx context.Context, node *entity.Node, slot *streampool.Slot)

// Engine opens one stream per transaction on a pooled slot and drives it
// to completion, handling TLS trust negotiation and transport resets
// below the level the operation callers see.
type Engine struct {
	pool      *streampool.Pool
	proxies   *proxyconf.Store
	trust     *tlstrust.Store
	confirmer tlstrust.IConfirmer
	auth      authcache.IAuthCache
	enqueue   EnqueueFunc

	userAgent    string
	sourceID     string
	firstReadLen int
	suppressUI   bool

	down atomic.Bool
}

type Option func(*Engine)

// WithUserAgent overrides the default User-Agent header value.
func WithUserAgent(ua string) Option {
	return func(e *Engine) {
		e.userAgent = ua
	}
}

// WithSourceID attaches an X-Source-Id header to every request.
func WithSourceID(id string) Option {
	return func(e *Engine) {
		e.sourceID = id
	}
}

// WithFirstReadLen overrides how much of a GET body is read on the
// calling goroutine before the download is handed to the background queue.
func WithFirstReadLen(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.firstReadLen = n
		}
	}
}

// WithSuppressUI disables all user interaction: certificate prompts are
// auto-refused and transactions fail immediately while the connection is
// down.
func WithSuppressUI(v bool) Option {
	return func(e *Engine) {
		e.suppressUI = v
	}
}

// WithEnqueue installs the background download queue.
func WithEnqueue(fn EnqueueFunc) Option {
	return func(e *Engine) {
		e.enqueue = fn
	}
}

// SetEnqueue installs the queue after construction. The queue needs the
// engine to finish downloads, so one of the two must be wired late.
func (e *Engine) SetEnqueue(fn EnqueueFunc) {
	e.enqueue = fn
}

func New(pool *streampool.Pool, proxies *proxyconf.Store, trust *tlstrust.Store,
	confirmer tlstrust.IConfirmer, auth authcache.IAuthCache, opts ...Option) *Engine {

	e := &Engine{
		pool:         pool,
		proxies:      proxies,
		trust:        trust,
		confirmer:    confirmer,
		auth:         auth,
		userAgent:    BuildUserAgent("", false),
		firstReadLen: defaultFirstReadLen(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultFirstReadLen() int {
	if n := os.Getpagesize(); n > 0 {
		return n
	}
	return 4096
}

// Down reports whether the last transaction attempt failed at the
// transport level and no attempt has succeeded since.
func (e *Engine) Down() bool {
	return e.down.Load()
}

func (e *Engine) markDown(ctx context.Context) {
	if e.down.CompareAndSwap(false, true) {
		logutil.GetLogger(ctx).Error("connection to server is down")
	}
}

func (e *Engine) markUp(ctx context.Context) {
	if e.down.CompareAndSwap(true, false) {
		logutil.GetLogger(ctx).Info("connection to server is up again")
	}
}

func (e *Engine) checkDown() error {
	if e.suppressUI && e.down.Load() {
		return fmt.Errorf("connection is down and ui is suppressed, err:%w", ErrDeviceDown)
	}
	return nil
}

// configGen combines the proxy and trust generations; a slot transport
// built against an older value must be rebuilt.
func (e *Engine) configGen() uint64 {
	return e.proxies.Generation()<<32 | (e.trust.Generation() & 0xffffffff)
}

func (e *Engine) transportFor(slot *streampool.Slot, serverName string) *http.Transport {
	gen := e.configGen()
	if t := slot.Transport(); t != nil && slot.ConfigGen() == gen {
		return t
	}
	t := &http.Transport{
		Proxy:               e.proxies.ProxyFunc(),
		TLSClientConfig:     e.trust.Config(serverName),
		MaxConnsPerHost:     1,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     90 * time.Second,
		// byte ranges and content lengths must arrive untransformed
		DisableCompression: true,
		ForceAttemptHTTP2:  false,
	}
	slot.SetTransport(t, gen)
	return t
}

func (e *Engine) openStream(ctx context.Context, slot *streampool.Slot, req *http.Request,
	autoRedirect bool, retryCredit *bool) (*http.Response, error) {

	client := &http.Client{Transport: e.transportFor(slot, req.URL.Hostname())}
	if !autoRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, e.handleStreamError(ctx, slot, req, err, retryCredit)
	}
	slot.InstallStream(resp)
	slot.SetConnClose(resp.Close || strings.EqualFold(resp.Header.Get("Connection"), "close"))
	e.markUp(ctx)
	logutil.GetLogger(ctx).Debug("stream opened",
		zap.Int("slot", slot.ID()), zap.String("correlation", slot.Correlation()),
		zap.String("method", req.Method), zap.Int("status", resp.StatusCode))
	return resp, nil
}

// handleStreamError resolves an open or read failure: a granted TLS
// relaxation or a consumed transport-reset credit turns into errRetry,
// everything else marks the connection down and fails.
func (e *Engine) handleStreamError(ctx context.Context, slot *streampool.Slot, req *http.Request,
	cause error, retryCredit *bool) error {

	slot.CloseConnection()
	if tlstrust.IsTLSError(cause) {
		host := req.URL.Hostname()
		chain := tlstrust.FetchPeerChain(ctx, hostPort(req), host)
		confirmer := e.confirmer
		if e.suppressUI {
			confirmer = tlstrust.RefuseAllConfirmer{}
		}
		switch nerr := e.trust.Negotiate(ctx, cause, host, chain, confirmer); {
		case nerr == nil:
			return errRetry
		case errors.Is(nerr, tlstrust.ErrRefused):
			return fmt.Errorf("certificate not trusted, err:%w", ErrCanceled)
		default:
			e.markDown(ctx)
			return fmt.Errorf("tls failure persists, cause:%v, err:%w", cause, ErrIO)
		}
	}
	if isReset(cause) && retryCredit != nil && *retryCredit {
		*retryCredit = false
		logutil.GetLogger(ctx).Debug("transport reset, retrying transaction once",
			zap.Int("slot", slot.ID()), zap.Error(cause))
		return errRetry
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	e.markDown(ctx)
	return fmt.Errorf("stream failed, cause:%v, err:%w", cause, ErrIO)
}

func isReset(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET)
}

func hostPort(req *http.Request) string {
	if len(req.URL.Port()) > 0 {
		return req.URL.Host
	}
	if req.URL.Scheme == "https" {
		return req.URL.Hostname() + ":443"
	}
	return req.URL.Hostname() + ":80"
}

// streamTransaction is one attempt of the buffered flavor: claim a slot,
// open the stream, read the whole body, give the slot back.
func (e *Engine) streamTransaction(ctx context.Context, req *http.Request,
	autoRedirect bool, retryCredit *bool, discardBody bool) (*Response, error) {

	slot, err := e.pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire stream slot failed, err:%w", err)
	}
	defer e.pool.Release(slot)

	resp, err := e.openStream(ctx, slot, req, autoRedirect, retryCredit)
	if err != nil {
		return nil, err
	}
	var body []byte
	if discardBody {
		if _, cerr := io.Copy(io.Discard, resp.Body); cerr != nil {
			return nil, e.handleStreamError(ctx, slot, req, cerr, retryCredit)
		}
	} else {
		body, err = e.readAll(ctx, slot, req, resp, retryCredit)
		if err != nil {
			return nil, err
		}
	}
	if slot.ConnClose() {
		slot.CloseConnection()
	} else {
		slot.CloseStream()
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// readAll drains the stream into a buffer that starts at 64KB and grows
// by 64KB whenever the remaining headroom drops under 32KB.
func (e *Engine) readAll(ctx context.Context, slot *streampool.Slot, req *http.Request,
	resp *http.Response, retryCredit *bool) ([]byte, error) {

	buf := make([]byte, 0, bodyBufferSize)
	for {
		if cap(buf)-len(buf) < bodyBufferHeadroom {
			next := make([]byte, len(buf), cap(buf)+bodyBufferSize)
			copy(next, buf)
			buf = next
		}
		n, err := resp.Body.Read(buf[len(buf):cap(buf)])
		buf = buf[:len(buf)+n]
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, e.handleStreamError(ctx, slot, req, err, retryCredit)
		}
	}
}

// streamGetTransaction is one attempt of the download flavor: read only
// the first chunk on the calling goroutine and hand the rest to the
// background queue. Only 200 and 206 touch the node's cache file.
func (e *Engine) streamGetTransaction(ctx context.Context, req *http.Request,
	node *entity.Node, retryCredit *bool) (*DownloadResult, error) {

	if node.File == nil {
		return nil, fmt.Errorf("node %q has no cache file, err:%w", node.Path, ErrInvalid)
	}
	slot, err := e.pool.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire stream slot failed, err:%w", err)
	}
	resp, err := e.openStream(ctx, slot, req, false, retryCredit)
	if err != nil {
		e.pool.Release(slot)
		return nil, err
	}

	status := resp.StatusCode
	if status != http.StatusOK && status != http.StatusPartialContent {
		// 304 carries no body; anything else is drained so the
		// connection stays reusable, and the send loop decides what to do
		if _, cerr := io.Copy(io.Discard, resp.Body); cerr != nil {
			herr := e.handleStreamError(ctx, slot, req, cerr, retryCredit)
			e.pool.Release(slot)
			return nil, herr
		}
		if status == http.StatusNotModified {
			node.SetDownloadStatus(entity.DownloadFinished)
			node.Provisional = false
		}
		if slot.ConnClose() {
			slot.CloseConnection()
		} else {
			slot.CloseStream()
		}
		e.pool.Release(slot)
		return &DownloadResult{Status: status, Header: resp.Header}, nil
	}

	prefix := make([]byte, 0, e.firstReadLen)
	sawEOF := false
	for len(prefix) < e.firstReadLen {
		n, rerr := resp.Body.Read(prefix[len(prefix):e.firstReadLen])
		prefix = prefix[:len(prefix)+n]
		if rerr == io.EOF {
			sawEOF = true
			break
		}
		if rerr != nil {
			herr := e.handleStreamError(ctx, slot, req, rerr, retryCredit)
			e.pool.Release(slot)
			return nil, herr
		}
	}

	var off int64
	switch status {
	case http.StatusOK:
		// full body: the local copy is replaced from offset zero
		if err := node.File.Truncate(0); err != nil {
			slot.CloseConnection()
			e.pool.Release(slot)
			return nil, fmt.Errorf("truncate cache file failed, err:%w", err)
		}
		node.SetDownloadStatus(entity.DownloadNever)
		off = 0
	case http.StatusPartialContent:
		off, err = node.File.Seek(0, io.SeekEnd)
		if err != nil {
			slot.CloseConnection()
			e.pool.Release(slot)
			return nil, fmt.Errorf("seek cache file failed, err:%w", err)
		}
	}
	if len(prefix) > 0 {
		if _, err := node.File.WriteAt(prefix, off); err != nil {
			slot.CloseConnection()
			e.pool.Release(slot)
			return nil, fmt.Errorf("write cache file failed, err:%w", err)
		}
		off += int64(len(prefix))
	}

	more := false
	if !sawEOF {
		if resp.ContentLength >= 0 {
			more = resp.ContentLength > int64(len(prefix))
		} else {
			// length unknown; one probe byte tells us whether the body
			// ended exactly at the first-read boundary
			var probe [1]byte
			n, rerr := resp.Body.Read(probe[:])
			if n > 0 {
				if _, err := node.File.WriteAt(probe[:n], off); err != nil {
					slot.CloseConnection()
					e.pool.Release(slot)
					return nil, fmt.Errorf("write cache file failed, err:%w", err)
				}
				more = true
			} else if rerr != nil && rerr != io.EOF {
				herr := e.handleStreamError(ctx, slot, req, rerr, retryCredit)
				e.pool.Release(slot)
				return nil, herr
			}
		}
	}

	if more {
		node.SetDownloadStatus(entity.DownloadInProgress)
		node.Provisional = true
		if e.enqueue != nil {
			// slot ownership moves to the background queue
			e.enqueue(ctx, node, slot)
			return &DownloadResult{Status: status, Header: resp.Header, HandedOff: true}, nil
		}
		if err := e.FinishDownload(ctx, slot, node); err != nil {
			return nil, err
		}
		return &DownloadResult{Status: status, Header: resp.Header}, nil
	}

	node.SetDownloadStatus(entity.DownloadFinished)
	node.Provisional = false
	if slot.ConnClose() {
		slot.CloseConnection()
	} else {
		slot.CloseStream()
	}
	e.pool.Release(slot)
	return &DownloadResult{Status: status, Header: resp.Header}, nil
}

// FinishDownload drains the rest of a handed-off download into the node's
// cache file. A termination request is honored at each read iteration; one
// extra probe read distinguishes a transfer that had in fact completed
// from one that must be resumed later. The slot is always released.
func (e *Engine) FinishDownload(ctx context.Context, slot *streampool.Slot, node *entity.Node) error {
	defer e.pool.Release(slot)
	logger := logutil.GetLogger(ctx).With(
		zap.Int("slot", slot.ID()), zap.String("path", node.Path))

	resp := slot.Stream()
	if resp == nil {
		node.SetDownloadStatus(entity.DownloadAborted)
		return fmt.Errorf("slot carries no stream, err:%w", ErrInvalid)
	}
	off, err := node.File.Seek(0, io.SeekEnd)
	if err != nil {
		node.SetDownloadStatus(entity.DownloadAborted)
		slot.CloseConnection()
		return fmt.Errorf("seek cache file failed, err:%w", err)
	}

	buf := make([]byte, bodyBufferSize)
	for {
		if node.TerminateRequested() {
			var probe [1]byte
			n, rerr := resp.Body.Read(probe[:])
			if n == 0 && rerr == io.EOF {
				break
			}
			// still incomplete; the probe byte is discarded
			node.SetDownloadStatus(entity.DownloadAborted)
			slot.CloseConnection()
			logger.Debug("download terminated before completion")
			return nil
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := node.File.WriteAt(buf[:n], off); werr != nil {
				node.SetDownloadStatus(entity.DownloadAborted)
				slot.CloseConnection()
				return fmt.Errorf("write cache file failed, err:%w", werr)
			}
			off += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			node.SetDownloadStatus(entity.DownloadAborted)
			e.markDown(ctx)
			slot.CloseConnection()
			return fmt.Errorf("download read failed, cause:%v, err:%w", rerr, ErrIO)
		}
	}

	node.SetDownloadStatus(entity.DownloadFinished)
	node.Provisional = false
	if slot.ConnClose() {
		slot.CloseConnection()
	} else {
		slot.CloseStream()
	}
	logger.Debug("download finished", zap.Int64("size", off))
	return nil
}
