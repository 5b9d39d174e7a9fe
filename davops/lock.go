package davops

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/davxml"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/transact"
	"go.uber.org/zap"
)

// Lock takes an exclusive write lock on the node, or refreshes the one it
// already holds. A refresh sends no body, presents the token in an If
// header and authenticates as the identity that took the lock; id is
// ignored in that case. The parsed token replaces the node's.
func (c *Client) Lock(ctx context.Context, id authcache.Identity, node *entity.Node) error {
	refresh := len(node.LockToken) > 0
	req := &transact.Request{
		Method: "LOCK",
		URL:    c.urlFor(node, ""),
		Header: []transact.Header{
			{Name: headerAccept, Value: acceptAny},
			{Name: headerDepth, Value: "0"},
			{Name: "Timeout", Value: fmt.Sprintf("Second-%d", c.lockSecs)},
		},
		Identity: id,
	}
	if refresh {
		req.Identity = lockIdentity(node)
		req.Header = append(req.Header,
			transact.Header{Name: headerContentType, Value: contentTypeXML},
			transact.Header{Name: "If", Value: ifLockHeader(node.LockToken)})
	} else {
		req.Body = []byte(davxml.BodyLock)
		req.Header = append(req.Header,
			transact.Header{Name: headerContentType, Value: `text/xml; charset="utf-8"`})
	}

	resp, err := c.engine.SendTransaction(ctx, req)
	if err != nil {
		return err
	}
	token, err := davxml.ParseLock(resp.Body)
	if err != nil {
		return fmt.Errorf("parse lock response failed, err:%w", err)
	}
	node.LockToken = token
	if !refresh {
		node.LockIdentity = uint32(id)
	}
	logutil.GetLogger(ctx).Debug("lock acquired",
		zap.String("path", node.Path), zap.Bool("refresh", refresh))
	return nil
}

// Unlock releases the node's lock, authenticating as the identity that
// took it. The local token is cleared whatever the server answers; a
// token the server no longer honors is useless to keep.
func (c *Client) Unlock(ctx context.Context, node *entity.Node) error {
	if len(node.LockToken) == 0 {
		return nil
	}
	req := &transact.Request{
		Method: "UNLOCK",
		URL:    c.urlFor(node, ""),
		Header: []transact.Header{
			{Name: headerAccept, Value: acceptAny},
			{Name: "Lock-Token", Value: "<" + node.LockToken + ">"},
		},
		Identity: lockIdentity(node),
	}
	_, err := c.engine.SendTransaction(ctx, req)
	node.LockToken = ""
	node.LockIdentity = 0
	return err
}
