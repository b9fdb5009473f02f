package commands

import (
	"fmt"

	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/cli/output"
	"github.com/spf13/cobra"
)

var flagUnread bool

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Read your notifications",
}

var notificationsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List notifications, unread ones marked with *",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		items, err := apiClient.ListNotifications(cmd.Context(), flagUnread)
		if err != nil {
			return fmt.Errorf("listing notifications: %w", err)
		}

		if flagJSON {
			output.JSON(items)
			return nil
		}
		output.NotificationTable(items)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		n, err := apiClient.MarkNotificationRead(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("marking notification read: %w", err)
		}

		if flagJSON {
			output.JSON(n)
			return nil
		}
		fmt.Fprintf(output.Out, "Marked %q as read\n", n.Title)
		return nil
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		updated, err := apiClient.MarkAllNotificationsRead(cmd.Context())
		if err != nil {
			return fmt.Errorf("marking notifications read: %w", err)
		}
		fmt.Fprintf(output.Out, "Marked %d notification(s) as read\n", updated)
		return nil
	},
}

func init() {
	notificationsLsCmd.Flags().BoolVar(&flagUnread, "unread", false, "Only unread notifications")
	notificationsCmd.AddCommand(notificationsLsCmd, notificationsReadCmd, notificationsReadAllCmd)
	rootCmd.AddCommand(notificationsCmd)
}
