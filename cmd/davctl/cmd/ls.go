package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type lsArgs struct {
	dir string
}

func NewLsCmd(c *Context) *cobra.Command {
	args := &lsArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "ls",
		Short: "List a remote directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunLs(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.dir, "dir", "d", "/", "remote directory to list")
	return subc
}

func onRunLs(ctx context.Context, c *Context, args *lsArgs) error {
	ents, err := c.Client.ReadDir(ctx, 0, dirNode(args.dir), false)
	if err != nil {
		return fmt.Errorf("list dir failed, err:%w", err)
	}
	for _, ent := range ents {
		kind := "-"
		if ent.IsDir {
			kind = "d"
		}
		fmt.Printf("%s %10s %s %s\n", kind, humanize.IBytes(uint64(ent.Size)),
			ent.MTime.Format("2006-01-02 15:04:05"), ent.Name)
	}
	return nil
}

func init() {
	register(NewLsCmd)
}
