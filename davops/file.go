package davops

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/davxml"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/httpkit"
	"github.com/xxxsen/davmount/transact"
	"go.uber.org/zap"
)

// Open brings the node's local cache copy up to date. The network is
// skipped entirely when local state already proves freshness: a finished
// download still inside the validity window, a fresh empty create, or an
// attribute-cache hit from a recent directory listing. Otherwise a
// conditional GET runs; 304 leaves the local copy authoritative.
func (c *Client) Open(ctx context.Context, id authcache.Identity, node *entity.Node) error {
	if node.IsDir {
		return fmt.Errorf("open of a collection has no content to fetch, err:%w", transact.ErrInvalid)
	}
	now := time.Now()
	if node.DownloadStatus() == entity.DownloadFinished && now.Sub(node.ValidatedAt) < c.validWindow {
		return nil
	}
	if node.DownloadStatus() == entity.DownloadNever && !node.CreatedAt.IsZero() &&
		now.Sub(node.CreatedAt) < c.validWindow {
		// freshly created on this client; the server copy is empty
		node.SetDownloadStatus(entity.DownloadFinished)
		node.ValidatedAt = now
		return nil
	}
	if c.tryAttrCache(ctx, node, now) {
		return nil
	}

	req := &transact.Request{
		Method:   "GET",
		URL:      c.urlFor(node, ""),
		Header:   []transact.Header{{Name: headerAccept, Value: acceptAny}},
		Identity: id,
	}
	switch node.DownloadStatus() {
	case entity.DownloadFinished:
		if !node.LastModified.IsZero() {
			req.Header = append(req.Header, transact.Header{
				Name: "If-Modified-Since", Value: httpkit.FormatHTTPDate(node.LastModified)})
		}
	case entity.DownloadAborted:
		// resume a partial copy; If-Range guards against the entity
		// having changed underneath it
		size, err := node.File.Seek(0, io.SeekEnd)
		if err != nil {
			return fmt.Errorf("measure cache file failed, err:%w", err)
		}
		req.Header = append(req.Header, transact.Header{
			Name: "Range", Value: fmt.Sprintf("bytes=%d-", size)})
		if v := ifRangeValue(node); len(v) > 0 {
			req.Header = append(req.Header, transact.Header{Name: "If-Range", Value: v})
		}
	}

	res, err := c.engine.SendDownload(ctx, req, node)
	if err != nil {
		return err
	}
	if res.Status != http.StatusNotModified {
		if lm := res.Header.Get("Last-Modified"); len(lm) > 0 {
			if t, perr := httpkit.ParseHTTPDate(lm); perr == nil {
				node.LastModified = t
			}
		}
		if et := res.Header.Get("ETag"); len(et) > 0 {
			node.EntityTag = et
		}
	}
	node.ValidatedAt = time.Now()
	return nil
}

// tryAttrCache materializes a listing-seeded attribute entry into the
// cache file. A failure to write it is recovered locally: the node drops
// back to never-downloaded and open proceeds over the network.
func (c *Client) tryAttrCache(ctx context.Context, node *entity.Node, now time.Time) bool {
	if c.attrs == nil || node.DownloadStatus() != entity.DownloadNever {
		return false
	}
	ent, ok := c.attrs.Get(ctx, node.Path)
	if !ok || len(ent.Header) == 0 || ent.Stat.Size != int64(len(ent.Header)) {
		return false
	}
	err := node.File.Truncate(0)
	if err == nil {
		_, err = node.File.WriteAt(ent.Header, 0)
	}
	if err != nil {
		logutil.GetLogger(ctx).Warn("materialize cached attributes failed",
			zap.String("path", node.Path), zap.Error(err))
		node.ResetCacheState()
		c.attrs.Invalidate(ctx, node.Path)
		return false
	}
	node.SetDownloadStatus(entity.DownloadFinished)
	node.LastModified = ent.Validators.LastModified
	node.EntityTag = ent.Validators.EntityTag
	node.ValidatedAt = now
	return true
}

func ifRangeValue(node *entity.Node) string {
	if len(node.EntityTag) > 0 {
		return node.EntityTag
	}
	if !node.LastModified.IsZero() {
		return httpkit.FormatHTTPDate(node.LastModified)
	}
	return ""
}

// Read fetches one byte range without touching the cache file. A response
// longer than requested, which a server ignoring Range will produce, is
// clipped to the requested count.
func (c *Client) Read(ctx context.Context, id authcache.Identity, node *entity.Node, offset, count int64) ([]byte, error) {
	if count <= 0 {
		return nil, nil
	}
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method: "GET",
		URL:    c.urlFor(node, ""),
		Header: []transact.Header{
			{Name: headerAccept, Value: acceptAny},
			{Name: "Range", Value: fmt.Sprintf("bytes=%d-%d", offset, offset+count-1)},
		},
		Identity: id,
	})
	if err != nil {
		return nil, err
	}
	body := resp.Body
	if int64(len(body)) > count {
		body = body[:count]
	}
	return body, nil
}

// Create makes an empty file on the server. The response Date header is
// the creation timestamp; zero when the server sent none.
func (c *Client) Create(ctx context.Context, id authcache.Identity, node *entity.Node, name string) (time.Time, error) {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:   "PUT",
		URL:      c.urlFor(node, name),
		Header:   []transact.Header{{Name: headerAccept, Value: acceptAny}},
		Identity: id,
	})
	if err != nil {
		return time.Time{}, err
	}
	return responseDate(resp.Header), nil
}

// Fsync pushes the whole cache file to the server with PUT. When the PUT
// response carries neither validator, a supplementary PROPFIND fetches
// them; the node's validators always end up reflecting the server's
// final truth.
func (c *Client) Fsync(ctx context.Context, id authcache.Identity, node *entity.Node) error {
	if node.File == nil {
		return fmt.Errorf("node %q has no cache file, err:%w", node.Path, transact.ErrInvalid)
	}
	req := &transact.Request{
		Method:   "PUT",
		URL:      c.urlFor(node, ""),
		Header:   []transact.Header{{Name: headerAccept, Value: acceptAny}},
		Identity: id,
	}
	if len(node.LockToken) > 0 {
		req.Header = append(req.Header, transact.Header{Name: "If", Value: ifLockHeader(node.LockToken)})
		req.Identity = lockIdentity(node)
	}
	resp, err := c.engine.SendUpload(ctx, req, node.File)
	if err != nil {
		return err
	}

	var v entity.CacheValidators
	if lm := resp.Header.Get("Last-Modified"); len(lm) > 0 {
		if t, perr := httpkit.ParseHTTPDate(lm); perr == nil {
			v.LastModified = t
		}
	}
	v.EntityTag = resp.Header.Get("ETag")
	if v.LastModified.IsZero() && len(v.EntityTag) == 0 {
		v = c.fetchValidators(ctx, id, node)
	}
	node.LastModified = v.LastModified
	node.EntityTag = v.EntityTag
	node.ValidatedAt = time.Now()
	return nil
}

func (c *Client) fetchValidators(ctx context.Context, id authcache.Identity, node *entity.Node) entity.CacheValidators {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:       "PROPFIND",
		URL:          c.urlFor(node, ""),
		Header:       xmlHeaders("0"),
		Body:         []byte(davxml.BodyCacheValidators),
		Identity:     id,
		AutoRedirect: true,
	})
	if err != nil {
		// best effort; the node simply ends up without validators
		return entity.CacheValidators{}
	}
	v, err := davxml.ParseCacheValidators(resp.Body)
	if err != nil {
		return entity.CacheValidators{}
	}
	return v
}
