package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type mvArgs struct {
	src string
	dst string
}

func NewMvCmd(c *Context) *cobra.Command {
	args := &mvArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "mv",
		Short: "Move or rename a remote path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunMv(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.src, "src", "s", "", "remote source path")
	subc.PersistentFlags().StringVarP(&args.dst, "dst", "d", "", "remote destination path")
	return subc
}

func onRunMv(ctx context.Context, c *Context, args *mvArgs) error {
	if len(args.src) == 0 || len(args.dst) == 0 {
		return fmt.Errorf("both src and dst are required")
	}
	dstDir, dstName := splitRemote(args.dst)
	_, err := c.Client.Rename(ctx, 0, fileNode(args.src), dstDir, dstName, nil)
	if err != nil {
		return fmt.Errorf("move failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("move succ", zap.String("src", args.src), zap.String("dst", args.dst))
	return nil
}

func init() {
	register(NewMvCmd)
}
