package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type putArgs struct {
	local  string
	remote string
	lock   bool
}

func NewPutCmd(c *Context) *cobra.Command {
	args := &putArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "put",
		Short: "Upload a local file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunPut(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.local, "local", "l", "", "local file to upload")
	subc.PersistentFlags().StringVarP(&args.remote, "remote", "r", "", "remote destination path")
	subc.PersistentFlags().BoolVar(&args.lock, "lock", false, "take a write lock around the upload")
	return subc
}

func onRunPut(ctx context.Context, c *Context, args *putArgs) error {
	if len(args.local) == 0 || len(args.remote) == 0 {
		return fmt.Errorf("both local and remote paths are required")
	}
	f, err := os.Open(args.local)
	if err != nil {
		return fmt.Errorf("open local file failed, err:%w", err)
	}
	defer f.Close()

	start := time.Now()
	node := fileNode(args.remote)
	node.File = f
	if args.lock {
		if err := c.Client.Lock(ctx, 0, node); err != nil {
			return fmt.Errorf("lock failed, err:%w", err)
		}
		defer func() {
			if uerr := c.Client.Unlock(ctx, node); uerr != nil {
				logutil.GetLogger(ctx).Warn("unlock failed", zap.Error(uerr))
			}
		}()
	}
	if err := c.Client.Fsync(ctx, 0, node); err != nil {
		return fmt.Errorf("upload failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("upload succ",
		zap.String("remote", args.remote), zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewPutCmd)
}
