package transact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/entity"
	"go.uber.org/zap"
)

// Header is one request header; a slice keeps the order the caller chose.
type Header struct {
	Name  string
	Value string
}

// Request describes one logical transaction. The send loop may issue it
// several times: after a credential change, a granted TLS relaxation or a
// transport reset.
type Request struct {
	Method       string
	URL          string
	Header       []Header
	Body         []byte
	Identity     authcache.Identity
	AutoRedirect bool
}

// Response is the buffered outcome of a transaction.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// DownloadResult is the outcome of the download flavor. HandedOff means
// the slot now belongs to the background queue and the body is still
// arriving into the node's cache file.
type DownloadResult struct {
	Status    int
	Header    http.Header
	HandedOff bool
}

func (e *Engine) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed, method:%s, err:%w", req.Method, err)
	}
	hreq.Header.Set("User-Agent", e.userAgent)
	if len(e.sourceID) > 0 {
		hreq.Header.Set("X-Source-Id", e.sourceID)
	}
	for _, h := range req.Header {
		hreq.Header.Set(h.Name, h.Value)
	}
	return hreq, nil
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusProxyAuthRequired
}

// SendTransaction runs the buffered flavor to completion: it reapplies
// credentials on 401/407, transparently absorbs TLS renegotiation and
// transport-reset retries, and maps the final status to the local error
// domain. The response is returned alongside the mapped error so callers
// can still inspect status and headers on failure.
func (e *Engine) SendTransaction(ctx context.Context, req *Request) (*Response, error) {
	return e.sendBuffered(ctx, req, false)
}

func (e *Engine) sendBuffered(ctx context.Context, req *Request, discardBody bool) (*Response, error) {
	if err := e.checkDown(); err != nil {
		return nil, err
	}
	var authGen uint64
	prior := 0
	retryCredit := true
	for {
		hreq, err := e.buildRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := e.auth.Apply(ctx, req.Identity, hreq, prior, &authGen); err != nil {
			return nil, fmt.Errorf("apply credentials failed, cause:%v, err:%w", err, ErrAuthNeeded)
		}
		resp, err := e.streamTransaction(ctx, hreq, req.AutoRedirect, &retryCredit, discardBody)
		if errors.Is(err, errRetry) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if isAuthStatus(resp.Status) {
			prior = resp.Status
			continue
		}
		if serr := StatusToError(resp.Status); serr != nil {
			logutil.GetLogger(ctx).Debug("transaction failed",
				zap.String("method", req.Method), zap.String("url", req.URL),
				zap.Int("status", resp.Status))
			return resp, fmt.Errorf("%s returned status %d, err:%w", req.Method, resp.Status, serr)
		}
		_ = e.auth.MarkValid(ctx, req.Identity, hreq, authGen)
		return resp, nil
	}
}

// SendDownload runs the download flavor. 304 is success here: the local
// cache copy is authoritative and no body was sent.
func (e *Engine) SendDownload(ctx context.Context, req *Request, node *entity.Node) (*DownloadResult, error) {
	if err := e.checkDown(); err != nil {
		return nil, err
	}
	var authGen uint64
	prior := 0
	retryCredit := true
	for {
		hreq, err := e.buildRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := e.auth.Apply(ctx, req.Identity, hreq, prior, &authGen); err != nil {
			return nil, fmt.Errorf("apply credentials failed, cause:%v, err:%w", err, ErrAuthNeeded)
		}
		res, err := e.streamGetTransaction(ctx, hreq, node, &retryCredit)
		if errors.Is(err, errRetry) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if isAuthStatus(res.Status) {
			prior = res.Status
			continue
		}
		if res.Status == http.StatusNotModified {
			_ = e.auth.MarkValid(ctx, req.Identity, hreq, authGen)
			return res, nil
		}
		if serr := StatusToError(res.Status); serr != nil {
			return res, fmt.Errorf("GET returned status %d, err:%w", res.Status, serr)
		}
		_ = e.auth.MarkValid(ctx, req.Identity, hreq, authGen)
		return res, nil
	}
}

// SendUpload runs the upload flavor: the request body is streamed from
// file with Content-Length taken from its size, redirects are never
// followed, and the response body is discarded after headers are
// captured. The file is rewound before every attempt.
func (e *Engine) SendUpload(ctx context.Context, req *Request, file *os.File) (*Response, error) {
	if err := e.checkDown(); err != nil {
		return nil, err
	}
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("measure upload file failed, err:%w", err)
	}
	var authGen uint64
	prior := 0
	retryCredit := true
	for {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind upload file failed, err:%w", err)
		}
		hreq, err := e.buildRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		// an empty body must still announce Content-Length: 0; a nil-ish
		// reader with ContentLength 0 is treated as unknown length and
		// sent chunked
		if size == 0 {
			hreq.Body = http.NoBody
		} else {
			hreq.Body = io.NopCloser(file)
		}
		hreq.ContentLength = size
		if err := e.auth.Apply(ctx, req.Identity, hreq, prior, &authGen); err != nil {
			return nil, fmt.Errorf("apply credentials failed, cause:%v, err:%w", err, ErrAuthNeeded)
		}
		// a method with a body must not chase redirects
		resp, err := e.streamTransaction(ctx, hreq, false, &retryCredit, true)
		if errors.Is(err, errRetry) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if isAuthStatus(resp.Status) {
			prior = resp.Status
			continue
		}
		if serr := StatusToError(resp.Status); serr != nil {
			return resp, fmt.Errorf("%s returned status %d, err:%w", req.Method, resp.Status, serr)
		}
		_ = e.auth.MarkValid(ctx, req.Identity, hreq, authGen)
		return resp, nil
	}
}
