package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jimdaga/ascend/internal/email"
	"github.com/jimdaga/ascend/internal/notifications"
	"github.com/spf13/cobra"
)

// nowFunc is swapped by tests
var nowFunc = time.Now

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Run a notification job now",
	}

	service := func() (*notifications.Service, error) {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return nil, err
		}
		db, err := ctx.database()
		if err != nil {
			return nil, err
		}
		return notifications.NewService(db, email.NewSender(cfg), cfg.AppURL, notifications.WithClock(nowFunc)), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   notifications.JobDeadline,
		Short: "Send due deadline reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			stats, err := svc.CheckDeadlines(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Checked", "Sent", "Failed", "Skipped"},
				[][]string{{itoa(stats.Checked), itoa(stats.Sent), itoa(stats.Failed), itoa(stats.Skipped)}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   notifications.JobWeekly,
		Short: "Send weekly digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			stats, err := svc.SendWeeklyDigests(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Users", "Sent", "Failed", "Skipped"},
				[][]string{{itoa(stats.Users), itoa(stats.Sent), itoa(stats.Failed), itoa(stats.Skipped)}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	})

	return cmd
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
