package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type mkdirArgs struct {
	dir string
}

func NewMkdirCmd(c *Context) *cobra.Command {
	args := &mkdirArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "mkdir",
		Short: "Create a remote directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunMkdir(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.dir, "dir", "d", "", "remote directory to create")
	return subc
}

func onRunMkdir(ctx context.Context, c *Context, args *mkdirArgs) error {
	if len(args.dir) == 0 {
		return fmt.Errorf("no directory given")
	}
	parent, name := splitRemote(args.dir)
	ts, err := c.Client.Mkdir(ctx, 0, parent, name)
	if err != nil {
		return fmt.Errorf("mkdir failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("mkdir succ", zap.String("dir", args.dir), zap.Time("created", ts))
	return nil
}

func init() {
	register(NewMkdirCmd)
}
