package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jimdaga/ascend/internal/directory"
	"github.com/spf13/cobra"
)

var errNoListings = errors.New("no matching listings")

func newDirectoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Browse the built-in theater and grant listings",
	}

	var tf directory.TheaterFilter
	theaters := &cobra.Command{
		Use:   "theaters",
		Short: "List theaters",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := directory.Load()
			if err != nil {
				return err
			}
			list := reg.Theaters(tf)
			if len(list) == 0 {
				return errNoListings
			}

			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{
					t.ID,
					t.Name,
					t.Status,
					t.Size,
					t.Deadline,
					"$" + strconv.FormatFloat(t.Fee, 'f', -1, 64),
					strings.Join(t.Genres, ", "),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Status", "Size", "Deadline", "Fee", "Genres"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	theaters.Flags().StringVar(&tf.Status, "status", "", "open, opening-soon or closed")
	theaters.Flags().StringVar(&tf.Size, "size", "", "major, mid-size or small-fringe")
	theaters.Flags().StringVar(&tf.Genre, "genre", "", "Genre tag")
	theaters.Flags().StringVar(&tf.Fee, "fee", "", "free, under-25, under-50 or 50-plus")
	cmd.AddCommand(theaters)

	var gf directory.GrantFilter
	grants := &cobra.Command{
		Use:   "grants",
		Short: "List grants, earliest deadline first",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := directory.Load()
			if err != nil {
				return err
			}
			list := reg.Grants(gf)
			if len(list) == 0 {
				return errNoListings
			}

			rows := make([][]string, 0, len(list))
			for _, g := range list {
				rows = append(rows, []string{g.Name, g.Category, g.Type, g.Deadline, g.Amount})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Name", "Category", "Type", "Deadline", "Amount"},
				rows,
				nil,
			))
			return nil
		},
	}
	grants.Flags().StringVar(&gf.Category, "category", "", "Grant category")
	grants.Flags().StringVar(&gf.Type, "type", "", "Grant type")
	cmd.AddCommand(grants)

	return cmd
}
