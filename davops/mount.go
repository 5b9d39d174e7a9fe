package davops

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/authcache"
	"github.com/xxxsen/davmount/entity"
	"github.com/xxxsen/davmount/httpkit"
	"github.com/xxxsen/davmount/transact"
	"go.uber.org/zap"
)

// MountInfo is the outcome of the mount handshake.
type MountInfo struct {
	// DAVLevel is the server's compliance class, capped at 2.
	DAVLevel int
	// ReadOnly is set when the server only speaks class 1 and locking is
	// unavailable.
	ReadOnly bool
	Root     entity.Stat
}

// Mount performs the handshake: OPTIONS to discover the DAV compliance
// level, then a stat of the root, which must be a collection. An
// authentication failure here means the user declined the mount.
func (c *Client) Mount(ctx context.Context, id authcache.Identity) (*MountInfo, error) {
	resp, err := c.engine.SendTransaction(ctx, &transact.Request{
		Method:       "OPTIONS",
		URL:          c.urlFor(nil, ""),
		Header:       []transact.Header{{Name: headerAccept, Value: acceptAny}},
		Identity:     id,
		AutoRedirect: true,
	})
	if err != nil {
		return nil, mountError(err)
	}
	level := httpkit.ParseDAVLevel(resp.Header.Get("DAV"))
	if level > 2 {
		level = 2
	}
	if level < 1 {
		return nil, fmt.Errorf("server is not a dav server, err:%w", transact.ErrNoDevice)
	}

	root, err := c.Stat(ctx, id, nil)
	if err != nil {
		return nil, mountError(err)
	}
	if !root.IsDir {
		return nil, fmt.Errorf("mount root is not a collection, err:%w", transact.ErrNoDevice)
	}

	info := &MountInfo{DAVLevel: level, ReadOnly: level < 2, Root: root}
	logutil.GetLogger(ctx).Info("mount handshake complete",
		zap.Int("dav_level", info.DAVLevel), zap.Bool("read_only", info.ReadOnly))
	return info, nil
}

func mountError(err error) error {
	if errors.Is(err, transact.ErrAuthNeeded) {
		return fmt.Errorf("mount authentication declined, err:%w", transact.ErrCanceled)
	}
	return err
}
