package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/campus-market/internal/app"
	"github.com/rajivgeraev/campus-market/internal/goods"
)

// GoodsListOptions содержит флаги команды goods list
type GoodsListOptions struct {
	*RootOptions
	Category string
	Keyword  string
	SortBy   string
	Order    string
}

// NewGoodsCommand создает группу команд goods
func NewGoodsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goods",
		Short: "Browse goods",
	}

	cmd.AddCommand(newGoodsListCommand(rootOpts))

	return cmd
}

func newGoodsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GoodsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goods with filters",
		Long: `List goods. Filtering and sorting happen on the client.

Examples:
  campusctl goods list --category 电子产品
  campusctl goods list --keyword 台灯 --sort price --order asc`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Витрина доступна без входа
			a, err := opts.openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Catalog.List(cmd.Context(), goods.Query{
				Category: opts.Category,
				Keyword:  opts.Keyword,
				SortBy:   goods.SortField(opts.SortBy),
				Order:    goods.SortOrder(opts.Order),
			})
			if err != nil {
				return backendError(err, "获取商品列表失败")
			}
			return opts.Printer(cmd).Print(list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "no goods")
					return
				}
				for _, g := range list {
					fmt.Fprintf(w, "#%-6d %8.2f  %-6s %s\n", g.ID, g.Price, g.Category, g.Name)
				}
			})
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", goods.AllCategories, "category filter")
	cmd.Flags().StringVar(&opts.Keyword, "keyword", "", "search in name and description")
	cmd.Flags().StringVar(&opts.SortBy, "sort", string(goods.SortByCreateTime), "sort field (createTime|price|name)")
	cmd.Flags().StringVar(&opts.Order, "order", string(goods.Desc), "sort order (asc|desc)")

	return cmd
}
