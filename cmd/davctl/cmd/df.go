package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func NewDfCmd(c *Context) *cobra.Command {
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "df",
		Short: "Show volume quota information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunDf(ctx, c)
		},
	}
	return subc
}

func onRunDf(ctx context.Context, c *Context) error {
	fs, err := c.Client.StatFS(ctx, 0, dirNode("/"))
	if err != nil {
		return fmt.Errorf("statfs failed, err:%w", err)
	}
	if fs.Quota == 0 && fs.QuotaUsed == 0 {
		fmt.Println("server reports no quota information")
		return nil
	}
	fmt.Printf("quota: %s\n", humanize.IBytes(fs.Quota))
	fmt.Printf("used:  %s\n", humanize.IBytes(fs.QuotaUsed))
	return nil
}

func init() {
	register(NewDfCmd)
}
