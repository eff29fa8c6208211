package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/trade"
	"github.com/rajivgeraev/campus-market/internal/utils"
)

// TradesListOptions содержит флаги команды trades list
type TradesListOptions struct {
	*RootOptions
	Status   string
	Page     int
	PageSize int
}

// NewTradesCommand создает группу команд trades
func NewTradesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List, show and accept trades",
	}

	cmd.AddCommand(newTradesListCommand(rootOpts))
	cmd.AddCommand(newTradesShowCommand(rootOpts))
	cmd.AddCommand(newTradesAcceptCommand(rootOpts))

	return cmd
}

func newTradesListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TradesListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List my trades",
		Long: `List trades where the current user is the buyer or the seller.

Examples:
  campusctl trades list
  campusctl trades list --status PENDING --page 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireIdentity(a); err != nil {
				return err
			}

			page, err := a.Trades.ListTrades(cmd.Context(), models.TradeStatus(opts.Status), opts.Page, opts.PageSize)
			if err != nil {
				return tradeError(err, "获取订单列表失败")
			}
			return opts.Printer(cmd).Print(page, func(w io.Writer) {
				if len(page.List) == 0 {
					fmt.Fprintln(w, "no trades")
					return
				}
				for _, v := range page.List {
					printTradeLine(w, v)
				}
				fmt.Fprintf(w, "page %d/%d, %d total\n", page.PageNum, page.Pages, page.Total)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (PENDING|ACCEPTED|SHIPPED|COMPLETED|CANCELLED)")
	cmd.Flags().IntVar(&opts.Page, "page", trade.DefaultPage, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", trade.DefaultPageSize, "page size")

	return cmd
}

func newTradesShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show TRADE_ID",
		Short: "Show a trade with its review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireIdentity(a); err != nil {
				return err
			}

			detail, err := a.Trades.Detail(cmd.Context(), id)
			if err != nil {
				return tradeError(err, "获取订单详情失败")
			}
			return rootOpts.Printer(cmd).Print(detail, func(w io.Writer) {
				printTradeLine(w, detail.View)
				if detail.Review != nil {
					fmt.Fprintf(w, "review: %d/5 %s\n", detail.Review.Rating, detail.Review.Content)
				}
			})
		},
	}
}

func newTradesAcceptCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accept TRADE_ID",
		Short: "Accept a pending trade as the seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireIdentity(a); err != nil {
				return err
			}

			view, err := a.Trades.AcceptTrade(cmd.Context(), id)
			if err != nil {
				return tradeError(err, "操作失败，请稍后重试")
			}
			return rootOpts.Printer(cmd).Print(view, func(w io.Writer) {
				printTradeLine(w, *view)
			})
		},
	}
}

func printTradeLine(w io.Writer, v trade.View) {
	role := string(v.Role)
	if role == "" {
		role = "-"
	}
	fmt.Fprintf(w, "#%-6d %-10s %-7s %8.2f  %s\n", v.ID, v.Status, role, v.TotalAmount, v.Product.Title)
	if len(v.Actions) > 0 {
		fmt.Fprintf(w, "        actions: %v\n", v.Actions)
	}
}

// tradeError подбирает текст для ошибок работы с заказами
func tradeError(err error, fallback string) error {
	switch {
	case errors.Is(err, trade.ErrUnavailable):
		return WrapExitError(ExitFailure, "trade unavailable", errors.New("订单不存在或无权查看"))
	case errors.Is(err, trade.ErrNotAllowed):
		return WrapExitError(ExitFailure, "not allowed", errors.New("当前订单状态不允许该操作"))
	case errors.Is(err, trade.ErrInvalidStatus):
		return WrapExitError(ExitCommandError, "invalid flag", err)
	}
	var te *trade.TransitionError
	if errors.As(err, &te) {
		return WrapExitError(ExitFailure, "rejected", te)
	}
	return backendError(err, fallback)
}

func parseID(raw string) (int64, error) {
	id, err := utils.ParseID(raw)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid argument", fmt.Errorf("%w: %s", err, strconv.Quote(raw)))
	}
	return id, nil
}
