package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type statArgs struct {
	path string
}

func NewStatCmd(c *Context) *cobra.Command {
	args := &statArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "stat",
		Short: "Stat a remote path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunStat(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.path, "path", "p", "", "remote path")
	return subc
}

func onRunStat(ctx context.Context, c *Context, args *statArgs) error {
	if len(args.path) == 0 {
		return fmt.Errorf("no path given")
	}
	st, err := c.Client.Stat(ctx, 0, fileNode(args.path))
	if err != nil {
		return fmt.Errorf("stat failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("stat succ",
		zap.String("path", args.path), zap.Bool("dir", st.IsDir),
		zap.Int64("size", st.Size), zap.Time("mtime", st.MTime))
	return nil
}

func init() {
	register(NewStatCmd)
}
