package davops

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/davmount/attrcache"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/httpkit"
	"github.com/xxxsen/davmount/proxyconf"
	"github.com/xxxsen/davmount/streampool"
	"github.com/xxxsen/davmount/tlstrust"
	"github.com/xxxsen/davmount/transact"
)

// passAuth stamps the identity into a header so tests can check which
// identity a request ran as, and refuses re-auth like the real cache
// does when no newer credentials exist.
type passAuth struct{}

func (passAuth) Apply(ctx context.Context, id authcache.Identity, req *http.Request, priorStatus int, gen *uint64) error {
	if priorStatus != 0 {
		return authcache.ErrRejected
	}
	req.Header.Set("X-Identity", strconv.FormatUint(uint64(id), 10))
	*gen = 1
	return nil
}

func (passAuth) MarkValid(ctx context.Context, id authcache.Identity, req *http.Request, gen uint64) error {
	return nil
}

func (passAuth) InvalidateProxy(ctx context.Context) error { return nil }

type recordedReq struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

// fakeDAV is a scriptable WebDAV server. Every request is recorded;
// respond decides the answer.
type fakeDAV struct {
	mu      sync.Mutex
	reqs    []recordedReq
	respond func(method, path string) (int, map[string]string, string)
}

var davMethods = []string{"OPTIONS", "PROPFIND", "GET", "PUT", "MKCOL", "DELETE", "MOVE", "LOCK", "UNLOCK"}

func newFakeDAV(t *testing.T) (*fakeDAV, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fakeDAV{
		respond: func(string, string) (int, map[string]string, string) {
			return http.StatusNotFound, nil, ""
		},
	}
	r := gin.New()
	h := func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		f.mu.Lock()
		f.reqs = append(f.reqs, recordedReq{
			Method: c.Request.Method,
			Path:   c.Request.URL.EscapedPath(),
			Header: c.Request.Header.Clone(),
			Body:   string(raw),
		})
		respond := f.respond
		f.mu.Unlock()
		status, hdr, body := respond(c.Request.Method, c.Request.URL.EscapedPath())
		for k, v := range hdr {
			c.Header(k, v)
		}
		c.Data(status, "text/xml; charset=utf-8", []byte(body))
	}
	for _, m := range davMethods {
		r.Handle(m, "/*any", h)
	}
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeDAV) requests() []recordedReq {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedReq, len(f.reqs))
	copy(out, f.reqs)
	return out
}

func (f *fakeDAV) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func (f *fakeDAV) last(t *testing.T) recordedReq {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.reqs)
	return f.reqs[len(f.reqs)-1]
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	pool := streampool.New(2)
	t.Cleanup(pool.Shutdown)
	engine := transact.New(pool, proxyconf.NewStore(nil, nil), tlstrust.NewStore(),
		tlstrust.RefuseAllConfirmer{}, passAuth{}, transact.WithFirstReadLen(4096))
	cl, err := New(engine, srv.URL+"/dav", opts...)
	require.NoError(t, err)
	return cl
}

func newFileNode(t *testing.T, path, content string) *entity.Node {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	if len(content) > 0 {
		_, err = f.WriteString(content)
		require.NoError(t, err)
	}
	return &entity.Node{Path: path, File: f}
}

func mustDate(t *testing.T, v string) time.Time {
	t.Helper()
	d, err := httpkit.ParseHTTPDate(v)
	require.NoError(t, err)
	return d
}

func newAttrCache(t *testing.T) *attrcache.Cache {
	t.Helper()
	c, err := attrcache.New()
	require.NoError(t, err)
	return c
}

const statBody = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response><D:href>/dav/dir/file.txt</D:href><D:propstat><D:prop>
    <D:getlastmodified>Fri, 21 Aug 2026 10:00:00 GMT</D:getlastmodified>
    <D:getcontentlength>1234</D:getcontentlength>
    <D:resourcetype/>
  </D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
</D:multistatus>`

const collectionBody = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response><D:href>/dav/</D:href><D:propstat><D:prop>
    <D:resourcetype><D:collection/></D:resourcetype>
  </D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
</D:multistatus>`

const lockBody = `<?xml version="1.0" encoding="utf-8"?>
<D:prop xmlns:D="DAV:"><D:lockdiscovery><D:activelock>
  <D:locktoken><D:href>opaquelocktoken:tok-1</D:href></D:locktoken>
</D:activelock></D:lockdiscovery></D:prop>`

func multiResponseBody(n int) string {
	body := `<?xml version="1.0" encoding="utf-8"?><D:multistatus xmlns:D="DAV:">`
	for i := 0; i < n; i++ {
		body += fmt.Sprintf(`<D:response><D:href>/dav/dir/e%d</D:href><D:propstat><D:prop><D:resourcetype/></D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>`, i)
	}
	return body + `</D:multistatus>`
}

func TestMount(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		if method == "OPTIONS" {
			return http.StatusOK, map[string]string{"DAV": "1,2"}, ""
		}
		return http.StatusMultiStatus, nil, collectionBody
	}
	cl := newTestClient(t, srv)
	info, err := cl.Mount(context.Background(), 501)
	require.NoError(t, err)
	assert.Equal(t, 2, info.DAVLevel)
	assert.False(t, info.ReadOnly)
	assert.True(t, info.Root.IsDir)
}

func TestMountLevelOneIsReadOnly(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		if method == "OPTIONS" {
			return http.StatusOK, map[string]string{"DAV": "1"}, ""
		}
		return http.StatusMultiStatus, nil, collectionBody
	}
	cl := newTestClient(t, srv)
	info, err := cl.Mount(context.Background(), 501)
	require.NoError(t, err)
	assert.Equal(t, 1, info.DAVLevel)
	assert.True(t, info.ReadOnly)
}

func TestMountNotDAV(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusOK, nil, ""
	}
	cl := newTestClient(t, srv)
	_, err := cl.Mount(context.Background(), 501)
	assert.ErrorIs(t, err, transact.ErrNoDevice)
}

func TestMountAuthFailureIsCancellation(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusUnauthorized, nil, ""
	}
	cl := newTestClient(t, srv)
	_, err := cl.Mount(context.Background(), 501)
	assert.ErrorIs(t, err, transact.ErrCanceled)
}

func TestLookupEscapesChildName(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, statBody
	}
	cl := newTestClient(t, srv)
	dir := &entity.Node{Path: "a dir/", IsDir: true}
	st, err := cl.Lookup(context.Background(), 501, dir, "we:ird? name")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), st.Size)

	req := f.last(t)
	assert.Equal(t, "PROPFIND", req.Method)
	assert.Equal(t, "/dav/a%20dir/we%3Aird%3F%20name", req.Path)
	assert.Equal(t, "0", req.Header.Get("Depth"))
	assert.Equal(t, "501", req.Header.Get("X-Identity"))
	assert.Contains(t, req.Body, "<D:getcontentlength/>")
}

func TestDirIsEmpty(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, multiResponseBody(1)
	}
	cl := newTestClient(t, srv)
	dir := &entity.Node{Path: "dir/", IsDir: true}

	empty, err := cl.DirIsEmpty(context.Background(), 501, dir)
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Equal(t, "1", f.last(t).Header.Get("Depth"))

	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, multiResponseBody(3)
	}
	empty, err = cl.DirIsEmpty(context.Background(), 501, dir)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestRmdirRefusesNonEmpty(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, multiResponseBody(2)
	}
	cl := newTestClient(t, srv)
	_, err := cl.Rmdir(context.Background(), 501, &entity.Node{Path: "dir/", IsDir: true})
	assert.ErrorIs(t, err, transact.ErrNotEmpty)
	for _, r := range f.requests() {
		assert.NotEqual(t, "DELETE", r.Method)
	}
}

func TestRemoveSendsLockToken(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusNoContent, map[string]string{"Date": "Fri, 21 Aug 2026 10:00:00 GMT"}, ""
	}
	cl := newTestClient(t, srv)
	node := &entity.Node{Path: "dir/file.txt", LockToken: "opaquelocktoken:tok-1", LockIdentity: 77}
	when, err := cl.Remove(context.Background(), 501, node)
	require.NoError(t, err)
	assert.False(t, when.IsZero())

	req := f.last(t)
	assert.Equal(t, "(<opaquelocktoken:tok-1>)", req.Header.Get("If"))
	// deletion runs as the locking identity
	assert.Equal(t, "77", req.Header.Get("X-Identity"))
}

func TestRenameNoOpOnIdenticalURLs(t *testing.T) {
	f, srv := newFakeDAV(t)
	cl := newTestClient(t, srv)
	src := &entity.Node{Path: "dir/name.txt"}
	dir := &entity.Node{Path: "dir/", IsDir: true}
	_, err := cl.Rename(context.Background(), 501, src, dir, "name.txt", nil)
	require.NoError(t, err)
	assert.Zero(t, f.count(), "no request may be sent for a same-URL rename")
}

func TestRename(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusCreated, map[string]string{"Date": "Fri, 21 Aug 2026 10:00:00 GMT"}, ""
	}
	cl := newTestClient(t, srv)
	src := &entity.Node{Path: "dir/old.txt"}
	dir := &entity.Node{Path: "other/", IsDir: true}
	when, err := cl.Rename(context.Background(), 501, src, dir, "new name.txt", nil)
	require.NoError(t, err)
	assert.False(t, when.IsZero())

	req := f.last(t)
	assert.Equal(t, "MOVE", req.Method)
	assert.Equal(t, "/dav/dir/old.txt", req.Path)
	assert.Equal(t, srv.URL+"/dav/other/new%20name.txt", req.Header.Get("Destination"))
}

func TestRenameOverNonEmptyDir(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, multiResponseBody(2)
	}
	cl := newTestClient(t, srv)
	src := &entity.Node{Path: "dir/src/", IsDir: true}
	dir := &entity.Node{Path: "other/", IsDir: true}
	existing := &entity.Node{Path: "other/dst/", IsDir: true}
	_, err := cl.Rename(context.Background(), 501, src, dir, "dst", existing)
	assert.ErrorIs(t, err, transact.ErrNotEmpty)
	for _, r := range f.requests() {
		assert.NotEqual(t, "MOVE", r.Method)
	}
}

func TestLockAndRefresh(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusOK, nil, lockBody
	}
	cl := newTestClient(t, srv, WithLockTimeout(120))
	node := &entity.Node{Path: "dir/file.txt"}

	require.NoError(t, cl.Lock(context.Background(), 42, node))
	assert.Equal(t, "opaquelocktoken:tok-1", node.LockToken)
	assert.Equal(t, uint32(42), node.LockIdentity)

	req := f.last(t)
	assert.Equal(t, "Second-120", req.Header.Get("Timeout"))
	assert.Contains(t, req.Body, "<D:exclusive/>")
	assert.Contains(t, req.Body, "<D:write/>")
	assert.Empty(t, req.Header.Get("If"))

	// refresh runs as the locking identity, with no body and an If header
	require.NoError(t, cl.Lock(context.Background(), 999, node))
	req = f.last(t)
	assert.Empty(t, req.Body)
	assert.Equal(t, "(<opaquelocktoken:tok-1>)", req.Header.Get("If"))
	assert.Equal(t, "42", req.Header.Get("X-Identity"))
	assert.Equal(t, uint32(42), node.LockIdentity)
}

func TestUnlockAlwaysClearsToken(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusLocked, nil, ""
	}
	cl := newTestClient(t, srv)
	node := &entity.Node{Path: "dir/file.txt", LockToken: "opaquelocktoken:tok-1", LockIdentity: 42}

	err := cl.Unlock(context.Background(), node)
	assert.ErrorIs(t, err, transact.ErrBusy)
	assert.Empty(t, node.LockToken)
	assert.Equal(t, "<opaquelocktoken:tok-1>", f.last(t).Header.Get("Lock-Token"))
}

func TestReadClipsOverlongResponse(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		// a server ignoring Range answers 200 with the whole entity
		return http.StatusOK, nil, "0123456789"
	}
	cl := newTestClient(t, srv)
	got, err := cl.Read(context.Background(), 501, &entity.Node{Path: "dir/f"}, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(got))
	assert.Equal(t, "bytes=2-5", f.last(t).Header.Get("Range"))
}

func TestCreateCapturesDate(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusCreated, map[string]string{"Date": "Fri, 21 Aug 2026 10:00:00 GMT"}, ""
	}
	cl := newTestClient(t, srv)
	dir := &entity.Node{Path: "dir/", IsDir: true}

	when, err := cl.Create(context.Background(), 501, dir, "new.txt")
	require.NoError(t, err)
	assert.False(t, when.IsZero())
	assert.Equal(t, "PUT", f.last(t).Method)

	when, err = cl.Mkdir(context.Background(), 501, dir, "sub")
	require.NoError(t, err)
	assert.False(t, when.IsZero())
	assert.Equal(t, "MKCOL", f.last(t).Method)
}

func TestOpenSkipsNetworkWhenFresh(t *testing.T) {
	f, srv := newFakeDAV(t)
	cl := newTestClient(t, srv)
	node := newFileNode(t, "dir/file.txt", "local copy")
	node.SetDownloadStatus(entity.DownloadFinished)
	node.ValidatedAt = time.Now()

	require.NoError(t, cl.Open(context.Background(), 501, node))
	assert.Zero(t, f.count())
}

func TestOpenConditionalGetNotModified(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusNotModified, nil, ""
	}
	cl := newTestClient(t, srv)
	node := newFileNode(t, "dir/file.txt", "local copy")
	node.SetDownloadStatus(entity.DownloadFinished)
	node.LastModified = mustDate(t, "Fri, 21 Aug 2026 10:00:00 GMT")

	require.NoError(t, cl.Open(context.Background(), 501, node))
	req := f.last(t)
	assert.Equal(t, "Fri, 21 Aug 2026 10:00:00 GMT", req.Header.Get("If-Modified-Since"))
	// local copy untouched
	raw, err := os.ReadFile(node.File.Name())
	require.NoError(t, err)
	assert.Equal(t, "local copy", string(raw))
	assert.False(t, node.ValidatedAt.IsZero())
}

func TestOpenFetchesChangedFile(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusOK, map[string]string{
			"Last-Modified": "Fri, 21 Aug 2026 11:00:00 GMT",
			"ETag":          `"v2"`,
		}, "fresh content"
	}
	cl := newTestClient(t, srv)
	node := newFileNode(t, "dir/file.txt", "stale stale stale")

	require.NoError(t, cl.Open(context.Background(), 501, node))
	raw, err := os.ReadFile(node.File.Name())
	require.NoError(t, err)
	assert.Equal(t, "fresh content", string(raw))
	assert.Equal(t, `"v2"`, node.EntityTag)
	assert.Equal(t, entity.DownloadFinished, node.DownloadStatus())
}

func TestOpenResumesPartialFile(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusPartialContent, nil, " end"
	}
	cl := newTestClient(t, srv)
	node := newFileNode(t, "dir/file.txt", "start")
	node.SetDownloadStatus(entity.DownloadAborted)
	node.EntityTag = `"v1"`

	require.NoError(t, cl.Open(context.Background(), 501, node))
	req := f.last(t)
	assert.Equal(t, "bytes=5-", req.Header.Get("Range"))
	assert.Equal(t, `"v1"`, req.Header.Get("If-Range"))
	raw, err := os.ReadFile(node.File.Name())
	require.NoError(t, err)
	assert.Equal(t, "start end", string(raw))
}

const extendedDirBody = `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:" xmlns:A="http://www.apple.com/webdav_fs/props/">
  <D:response><D:href>/dav/dir/</D:href><D:propstat><D:prop>
    <D:resourcetype><D:collection/></D:resourcetype>
  </D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
  <D:response><D:href>/dav/dir/file.bin</D:href><D:propstat><D:prop>
    <D:getlastmodified>Fri, 21 Aug 2026 10:00:00 GMT</D:getlastmodified>
    <D:getcontentlength>8</D:getcontentlength>
    <D:resourcetype/>
    <A:appledoubleheader>SERSREFUQSE=</A:appledoubleheader>
  </D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
</D:multistatus>`

func TestReadDirSeedsAttrCacheAndOpenHits(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, extendedDirBody
	}
	cache := newAttrCache(t)
	cl := newTestClient(t, srv, WithAttrCache(cache))
	dir := &entity.Node{Path: "dir/", IsDir: true}

	ents, err := cl.ReadDir(context.Background(), 501, dir, true)
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Contains(t, f.last(t).Body, "appledoubleheader")
	cache.Wait()

	before := f.count()
	node := newFileNode(t, "dir/file.bin", "")
	require.NoError(t, cl.Open(context.Background(), 501, node))
	assert.Equal(t, before, f.count(), "attr cache hit must not touch the network")
	raw, err := os.ReadFile(node.File.Name())
	require.NoError(t, err)
	assert.Equal(t, "HDRDATA!", string(raw))
	assert.Equal(t, entity.DownloadFinished, node.DownloadStatus())
}

func TestFsync(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		if method == "PUT" {
			return http.StatusNoContent, nil, ""
		}
		// supplementary validator fetch
		return http.StatusMultiStatus, nil, `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response><D:href>/dav/dir/file.txt</D:href><D:propstat><D:prop>
    <D:getlastmodified>Fri, 21 Aug 2026 12:00:00 GMT</D:getlastmodified>
    <D:getetag>"after-put"</D:getetag>
  </D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
</D:multistatus>`
	}
	cl := newTestClient(t, srv)
	node := newFileNode(t, "dir/file.txt", "dirty bytes")

	require.NoError(t, cl.Fsync(context.Background(), 501, node))
	reqs := f.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "PUT", reqs[0].Method)
	assert.Equal(t, "dirty bytes", reqs[0].Body)
	assert.Equal(t, "PROPFIND", reqs[1].Method)
	assert.Contains(t, reqs[1].Body, "<D:getetag/>")
	assert.Equal(t, `"after-put"`, node.EntityTag)
	assert.False(t, node.LastModified.IsZero())
}

func TestFsyncSkipsPropfindWhenValidatorsPresent(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusNoContent, map[string]string{"ETag": `"direct"`}, ""
	}
	cl := newTestClient(t, srv)
	node := newFileNode(t, "dir/file.txt", "dirty")
	node.LockToken = "opaquelocktoken:tok-1"
	node.LockIdentity = 42

	require.NoError(t, cl.Fsync(context.Background(), 501, node))
	reqs := f.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "(<opaquelocktoken:tok-1>)", reqs[0].Header.Get("If"))
	assert.Equal(t, "42", reqs[0].Header.Get("X-Identity"))
	assert.Equal(t, `"direct"`, node.EntityTag)
}

func TestStatFS(t *testing.T) {
	f, srv := newFakeDAV(t)
	f.respond = func(method, path string) (int, map[string]string, string) {
		return http.StatusMultiStatus, nil, `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response><D:href>/dav/</D:href><D:propstat><D:prop>
    <D:quota>100000</D:quota><D:quotaused>2500</D:quotaused>
  </D:prop><D:status>HTTP/1.1 200 OK</D:status></D:propstat></D:response>
</D:multistatus>`
	}
	cl := newTestClient(t, srv)
	fs, err := cl.StatFS(context.Background(), 501, &entity.Node{Path: "", IsDir: true})
	require.NoError(t, err)
	assert.Equal(t, uint64(100000), fs.Quota)
	assert.Equal(t, uint64(2500), fs.QuotaUsed)
	assert.Contains(t, f.last(t).Body, "<D:quotaused/>")
}
