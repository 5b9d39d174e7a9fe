package davxml

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/httpkit"
)

// multistatus mirrors the 207 response body. Properties are matched by
// local name; servers differ in how they prefix the DAV namespace.
type multistatus struct {
	XMLName   xml.Name   `xml:"multistatus"`
	Responses []response `xml:"response"`
}

type response struct {
	Href      string     `xml:"href"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string `xml:"status"`
	Prop   prop   `xml:"prop"`
}

type prop struct {
	GetLastModified   string       `xml:"getlastmodified"`
	GetContentLength  string       `xml:"getcontentlength"`
	GetETag           string       `xml:"getetag"`
	ResourceType      resourceType `xml:"resourcetype"`
	Quota             string       `xml:"quota"`
	QuotaUsed         string       `xml:"quotaused"`
	QuotaAvailable    string       `xml:"quota-available-bytes"`
	QuotaUsedBytes    string       `xml:"quota-used-bytes"`
	AppleDoubleHeader string       `xml:"appledoubleheader"`
}

type resourceType struct {
	Collection *struct{} `xml:"collection"`
}

type lockResponse struct {
	XMLName       xml.Name `xml:"prop"`
	LockDiscovery struct {
		ActiveLock struct {
			LockToken struct {
				Href string `xml:"href"`
			} `xml:"locktoken"`
		} `xml:"activelock"`
	} `xml:"lockdiscovery"`
}

func decodeMultistatus(data []byte) (*multistatus, error) {
	var ms multistatus
	if err := xml.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("decode multistatus failed, err:%w", err)
	}
	if len(ms.Responses) == 0 {
		return nil, fmt.Errorf("multistatus carries no response element")
	}
	return &ms, nil
}

// okProp picks the propstat whose status line says 200. A propstat with
// no status at all counts as usable; broken servers omit it.
func okProp(r *response) *prop {
	for i := range r.Propstats {
		ps := &r.Propstats[i]
		if ps.Status == "" || strings.Contains(ps.Status, " 200 ") || strings.HasSuffix(ps.Status, " 200") {
			return &ps.Prop
		}
	}
	if len(r.Propstats) > 0 {
		return &r.Propstats[0].Prop
	}
	return nil
}

func statFromProp(p *prop) entity.Stat {
	var st entity.Stat
	st.IsDir = p.ResourceType.Collection != nil
	if len(p.GetContentLength) > 0 {
		if n, err := strconv.ParseInt(strings.TrimSpace(p.GetContentLength), 10, 64); err == nil {
			st.Size = n
		}
	}
	if t, err := httpkit.ParseHTTPDate(p.GetLastModified); err == nil {
		st.MTime = t
	}
	return st
}

// ParseStat fills a stat from a depth-0 PROPFIND response.
func ParseStat(data []byte) (entity.Stat, error) {
	ms, err := decodeMultistatus(data)
	if err != nil {
		return entity.Stat{}, err
	}
	p := okProp(&ms.Responses[0])
	if p == nil {
		return entity.Stat{}, fmt.Errorf("response carries no propstat")
	}
	return statFromProp(p), nil
}

// ParseFileCount returns the number of response elements in a multistatus
// body. On a depth-1 PROPFIND of a collection the count includes the
// collection itself, so an empty directory yields 1.
func ParseFileCount(data []byte) (int, error) {
	ms, err := decodeMultistatus(data)
	if err != nil {
		return 0, err
	}
	return len(ms.Responses), nil
}

// ParseCacheValidators extracts the Last-Modified/ETag pair from a
// PROPFIND response. Either may be absent.
func ParseCacheValidators(data []byte) (entity.CacheValidators, error) {
	ms, err := decodeMultistatus(data)
	if err != nil {
		return entity.CacheValidators{}, err
	}
	p := okProp(&ms.Responses[0])
	if p == nil {
		return entity.CacheValidators{}, fmt.Errorf("response carries no propstat")
	}
	var v entity.CacheValidators
	if t, err := httpkit.ParseHTTPDate(p.GetLastModified); err == nil {
		v.LastModified = t
	}
	v.EntityTag = strings.TrimSpace(p.GetETag)
	return v, nil
}

// ParseStatFS extracts the quota pair. Legacy servers answer quota and
// quotaused; RFC 4331 servers answer quota-available-bytes and
// quota-used-bytes. Missing values stay zero.
func ParseStatFS(data []byte) (entity.FSInfo, error) {
	ms, err := decodeMultistatus(data)
	if err != nil {
		return entity.FSInfo{}, err
	}
	p := okProp(&ms.Responses[0])
	if p == nil {
		return entity.FSInfo{}, fmt.Errorf("response carries no propstat")
	}
	var fs entity.FSInfo
	fs.Quota = parseQuota(p.Quota, p.QuotaAvailable)
	fs.QuotaUsed = parseQuota(p.QuotaUsed, p.QuotaUsedBytes)
	return fs, nil
}

func parseQuota(values ...string) uint64 {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) == 0 {
			continue
		}
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

// ParseOpenDir turns a depth-1 PROPFIND response into directory entries.
// The entry whose href names the collection itself is skipped. An entry
// with an undecodable href is dropped rather than failing the listing.
func ParseOpenDir(data []byte, dirHref string) ([]entity.DirEntry, error) {
	ms, err := decodeMultistatus(data)
	if err != nil {
		return nil, err
	}
	self := normalizeHref(dirHref)
	out := make([]entity.DirEntry, 0, len(ms.Responses))
	for i := range ms.Responses {
		r := &ms.Responses[i]
		href := normalizeHref(r.Href)
		if href == "" || href == self {
			continue
		}
		p := okProp(r)
		if p == nil {
			continue
		}
		st := statFromProp(p)
		ent := entity.DirEntry{
			Name:  path.Base(href),
			IsDir: st.IsDir,
			Size:  st.Size,
			MTime: st.MTime,
		}
		if len(p.AppleDoubleHeader) > 0 {
			if raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(p.AppleDoubleHeader)); err == nil {
				ent.HeaderBlock = raw
			}
		}
		out = append(out, ent)
	}
	return out, nil
}

// normalizeHref reduces an href to an unescaped absolute path without the
// trailing slash, so collection hrefs compare equal regardless of how the
// server spells them.
func normalizeHref(href string) string {
	href = strings.TrimSpace(href)
	if len(href) == 0 {
		return ""
	}
	if u, err := url.Parse(href); err == nil {
		href = u.Path
		if unescaped, err := url.PathUnescape(u.EscapedPath()); err == nil {
			href = unescaped
		}
	}
	if len(href) > 1 {
		href = strings.TrimSuffix(href, "/")
	}
	return href
}

// ParseLock extracts the lock token from a LOCK response body.
func ParseLock(data []byte) (string, error) {
	var lr lockResponse
	if err := xml.Unmarshal(data, &lr); err != nil {
		return "", fmt.Errorf("decode lock response failed, err:%w", err)
	}
	token := strings.TrimSpace(lr.LockDiscovery.ActiveLock.LockToken.Href)
	if len(token) == 0 {
		return "", fmt.Errorf("lock response carries no lock token")
	}
	return token, nil
}
