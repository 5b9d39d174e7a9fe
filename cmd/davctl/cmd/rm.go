package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type rmArgs struct {
	path string
	dir  bool
}

func NewRmCmd(c *Context) *cobra.Command {
	args := &rmArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "rm",
		Short: "Delete a remote file or empty directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunRm(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote path to delete")
	subc.PersistentFlags().BoolVarP(&args.dir, "dir", "d", false, "target is a directory")
	return subc
}

func onRunRm(ctx context.Context, c *Context, args *rmArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path given")
	}
	var err error
	if args.dir {
		_, err = c.Client.Rmdir(ctx, 0, dirNode(args.path))
	} else {
		_, err = c.Client.Remove(ctx, 0, fileNode(args.path))
	}
	if err != nil {
		return fmt.Errorf("delete failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("delete succ", zap.String("path", args.path))
	return nil
}

func init() {
	register(NewRmCmd)
}
