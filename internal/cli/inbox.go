package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/campus-market/internal/backend"
)

// NewInboxCommand создает группу команд inbox
func NewInboxCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Read and send messages",
	}

	cmd.AddCommand(newInboxListCommand(rootOpts))
	cmd.AddCommand(newInboxShowCommand(rootOpts))
	cmd.AddCommand(newInboxSendCommand(rootOpts))

	return cmd
}

func newInboxListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireIdentity(a); err != nil {
				return err
			}

			conversations, err := a.Inbox.Conversations(cmd.Context())
			if err != nil {
				return backendError(err, "获取会话列表失败")
			}
			return rootOpts.Printer(cmd).Print(conversations, func(w io.Writer) {
				if len(conversations) == 0 {
					fmt.Fprintln(w, "no conversations")
					return
				}
				for _, conv := range conversations {
					latest := ""
					if conv.Latest != nil {
						latest = conv.Latest.Content
					}
					fmt.Fprintf(w, "user %-6d unread %-3d %-8s %s\n",
						conv.CounterpartID, conv.Unread, conv.LastTime, latest)
				}
			})
		},
	}
}

func newInboxShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show USER_ID",
		Short: "Show the conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counterpartID, err := parseID(args[0])
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

			entries, err := a.Inbox.History(cmd.Context(), counterpartID)
			if err != nil {
				return backendError(err, "获取聊天历史失败")
			}
			return rootOpts.Printer(cmd).Print(entries, func(w io.Writer) {
				for _, e := range entries {
					who := "them"
					if e.Own {
						who = "me"
					}
					fmt.Fprintf(w, "[%s] %-4s %s\n", e.SendTime.Format(time.DateTime), who, e.Content)
				}
			})
		},
	}
}

// InboxSendOptions содержит флаги команды inbox send
type InboxSendOptions struct {
	*RootOptions
	ProductID int64
}

func newInboxSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InboxSendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send USER_ID MESSAGE",
		Short: "Send a message to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			toUserID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var productID *int64
			if opts.ProductID > 0 {
				productID = &opts.ProductID
			}

			a, err := opts.openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := requireIdentity(a); err != nil {
				return err
			}

			result, err := a.Inbox.Send(cmd.Context(), toUserID, args[1], productID)
			if err != nil {
				return backendError(err, "发送消息失败")
			}
			return opts.Printer(cmd).Print(result, func(w io.Writer) {
				fmt.Fprintf(w, "sent, %d unread\n", result.Unread)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.ProductID, "product", 0, "product the message is about")

	return cmd
}

// backendError оборачивает ошибку бэкенда текстом для пользователя
func backendError(err error, fallback string) error {
	return WrapExitError(ExitFailure, "request failed", backend.Describe(err, fallback))
}
