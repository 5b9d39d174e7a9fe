package davops

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xxxsen/davmount/attrcache"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/davxml"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/transact"
)

// Stat fetches the metadata of the node itself.
func (c *Client) Stat(ctx context.Context, id authcache.Identity, node *entity.Node) (entity.Stat, error) {
	return c.statURL(ctx, id, c.urlFor(node, ""))
}

// Lookup fetches the metadata of a named child of node.
func (c *Client) Lookup(ctx context.Context, id authcache.Identity, node *entity.Node, name string) (entity.Stat, error) {
	return c.statURL(ctx, id, c.urlFor(node, name))
}

// GetAttr is Stat with the node's file id carried into the result.
func (c *Client) GetAttr(ctx context.Context, id authcache.Identity, node *entity.Node) (entity.Stat, error) {
	st, err := c.Stat(ctx, id, node)
	if err != nil {
		return entity.Stat{}, err
	}
	st.FileID = node.FileID
	return st, nil
}

func (c *Client) statURL(ctx context.Context, id authcache.Identity, u string) (entity.Stat, error) {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:       "PROPFIND",
		URL:          u,
		Header:       xmlHeaders("0"),
		Body:         []byte(davxml.BodyStat),
		Identity:     id,
		AutoRedirect: true,
	})
	if err != nil {
		return entity.Stat{}, err
	}
	st, err := davxml.ParseStat(resp.Body)
	if err != nil {
		return entity.Stat{}, fmt.Errorf("parse stat response failed, err:%w", err)
	}
	return st, nil
}

// DirIsEmpty reports whether the collection has no children. A depth-1
// PROPFIND returns the collection itself plus one response per child, so
// anything beyond one response means non-empty.
func (c *Client) DirIsEmpty(ctx context.Context, id authcache.Identity, node *entity.Node) (bool, error) {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:       "PROPFIND",
		URL:          c.urlFor(node, ""),
		Header:       xmlHeaders("1"),
		Body:         []byte(davxml.BodyResourceType),
		Identity:     id,
		AutoRedirect: true,
	})
	if err != nil {
		return false, err
	}
	n, err := davxml.ParseFileCount(resp.Body)
	if err != nil {
		return false, fmt.Errorf("parse file count failed, err:%w", err)
	}
	return n <= 1, nil
}

// ReadDir lists the children of a collection. With withAttrs set the
// extended property set is requested and each child's attributes are
// seeded into the attribute cache for the open that usually follows.
func (c *Client) ReadDir(ctx context.Context, id authcache.Identity, node *entity.Node, withAttrs bool) ([]entity.DirEntry, error) {
	body := davxml.BodyReadDir
	if withAttrs && c.attrs != nil {
		body = davxml.BodyReadDirExtended
	}
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:       "PROPFIND",
		URL:          c.urlFor(node, ""),
		Header:       xmlHeaders("1"),
		Body:         []byte(body),
		Identity:     id,
		AutoRedirect: true,
	})
	if err != nil {
		return nil, err
	}
	ents, err := davxml.ParseOpenDir(resp.Body, c.pathFor(node, ""))
	if err != nil {
		return nil, fmt.Errorf("parse directory listing failed, err:%w", err)
	}
	if withAttrs && c.attrs != nil {
		for _, ent := range ents {
			if ent.IsDir {
				continue
			}
			c.attrs.Put(ctx, node.Path+ent.Name, attrcache.Entry{
				Stat:       entity.Stat{IsDir: ent.IsDir, Size: ent.Size, MTime: ent.MTime},
				Validators: entity.CacheValidators{LastModified: ent.MTime},
				Header:     ent.HeaderBlock,
			})
		}
	}
	return ents, nil
}

// StatFS fetches the quota information of the volume root.
func (c *Client) StatFS(ctx context.Context, id authcache.Identity, node *entity.Node) (entity.FSInfo, error) {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:       "PROPFIND",
		URL:          c.urlFor(node, ""),
		Header:       xmlHeaders("0"),
		Body:         []byte(davxml.BodyStatFS),
		Identity:     id,
		AutoRedirect: true,
	})
	if err != nil {
		// quota props are optional; a server refusing them is not fatal
		if resp != nil && resp.Status == http.StatusNotFound {
			return entity.FSInfo{}, nil
		}
		return entity.FSInfo{}, err
	}
	fs, err := davxml.ParseStatFS(resp.Body)
	if err != nil {
		return entity.FSInfo{}, fmt.Errorf("parse statfs response failed, err:%w", err)
	}
	return fs, nil
}
