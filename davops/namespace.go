package davops

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/transact"
)

// Mkdir creates a collection. The response Date header is the creation
// timestamp; zero when absent.
func (c *Client) Mkdir(ctx context.Context, id authcache.Identity, node *entity.Node, name string) (time.Time, error) {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:   "MKCOL",
		URL:      c.urlFor(node, name),
		Header:   []transact.Header{{Name: headerAccept, Value: acceptAny}},
		Identity: id,
	})
	if err != nil {
		return time.Time{}, err
	}
	return responseDate(resp.Header), nil
}

// Remove deletes a file, presenting the lock token when the node holds
// one. The deletion timestamp comes from the response Date header.
func (c *Client) Remove(ctx context.Context, id authcache.Identity, node *entity.Node) (time.Time, error) {
	return c.deleteNode(ctx, id, node)
}

// Rmdir deletes a collection after verifying it has no children.
func (c *Client) Rmdir(ctx context.Context, id authcache.Identity, node *entity.Node) (time.Time, error) {
	empty, err := c.DirIsEmpty(ctx, id, node)
	if err != nil {
		return time.Time{}, err
	}
	if !empty {
		return time.Time{}, fmt.Errorf("directory %q has children, err:%w", node.Path, transact.ErrNotEmpty)
	}
	return c.deleteNode(ctx, id, node)
}

func (c *Client) deleteNode(ctx context.Context, id authcache.Identity, node *entity.Node) (time.Time, error) {
	req := &transact.Request{
		Method:   "DELETE",
		URL:      c.urlFor(node, ""),
		Header:   []transact.Header{{Name: headerAccept, Value: acceptAny}},
		Identity: id,
	}
	if len(node.LockToken) > 0 {
		req.Header = append(req.Header, transact.Header{Name: "If", Value: ifLockHeader(node.LockToken)})
		req.Identity = lockIdentity(node)
	}
	resp, err := c.engine.SendTransaction(ctx, req)
	if err != nil {
		return time.Time{}, err
	}
	return responseDate(resp.Header), nil
}

// Rename moves src under dstDir as dstName. When source and destination
// URLs come out identical the move is a no-op success; servers answer
// 403 to a same-URL MOVE. An existing directory at the destination must
// be empty before it may be replaced.
func (c *Client) Rename(ctx context.Context, id authcache.Identity, src *entity.Node,
	dstDir *entity.Node, dstName string, existing *entity.Node) (time.Time, error) {

	srcURL := c.urlFor(src, "")
	dstURL := c.urlFor(dstDir, dstName)
	if srcURL == dstURL {
		return time.Time{}, nil
	}
	if existing != nil && existing.IsDir {
		empty, err := c.DirIsEmpty(ctx, id, existing)
		if err != nil {
			return time.Time{}, err
		}
		if !empty {
			return time.Time{}, fmt.Errorf("rename target %q has children, err:%w",
				existing.Path, transact.ErrNotEmpty)
		}
	}
	req := &transact.Request{
		Method: "MOVE",
		URL:    srcURL,
		Header: []transact.Header{
			{Name: headerAccept, Value: acceptAny},
			{Name: "Destination", Value: dstURL},
		},
		Identity: id,
	}
	if len(src.LockToken) > 0 {
		req.Header = append(req.Header, transact.Header{Name: "If", Value: ifLockHeader(src.LockToken)})
		req.Identity = lockIdentity(src)
	}
	resp, err := c.engine.SendTransaction(ctx, req)
	if err != nil {
		return time.Time{}, err
	}
	return responseDate(resp.Header), nil
}
