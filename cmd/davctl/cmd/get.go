package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/davmount/entity"
	"go.uber.org/zap"
)

type getArgs struct {
	remote string
	local  string
}

func NewGetCmd(c *Context) *cobra.Command {
	args := &getArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "get",
		Short: "Download a remote file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunGet(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.remote, "remote", "r", "", "remote file path")
	subc.PersistentFlags().StringVarP(&args.local, "local", "l", "", "local destination file")
	return subc
}

func onRunGet(ctx context.Context, c *Context, args *getArgs) error {
	if len(args.remote) == 0 || len(args.local) == 0 {
		return fmt.Errorf("both remote and local paths are required")
	}
	f, err := os.Create(args.local)
	if err != nil {
		return fmt.Errorf("create local file failed, err:%w", err)
	}
	defer f.Close()

	start := time.Now()
	node := fileNode(args.remote)
	node.File = f
	if err := c.Client.Open(ctx, 0, node); err != nil {
		return fmt.Errorf("download failed, err:%w", err)
	}
	// wait for the background tail of a large download
	c.Queue.Close()
	if node.DownloadStatus() != entity.DownloadFinished {
		return fmt.Errorf("download did not complete, status:%d", node.DownloadStatus())
	}
	logutil.GetLogger(ctx).Info("download succ",
		zap.String("remote", args.remote), zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewGetCmd)
}
