package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jimdaga/ascend/internal/models"
	"github.com/jimdaga/ascend/internal/submissions"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func submissionService(db *gorm.DB) *submissions.Service {
	// Operator writes skip email and calendar side effects
	return submissions.NewService(submissions.NewStore(db), nil)
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		userEmail string
		status    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.database()
			if err != nil {
				return err
			}
			user, err := findUser(db, userEmail)
			if err != nil {
				return err
			}

			subs, err := submissionService(db).List(cmd.Context(), user.ID, submissions.ExportFilter{Status: status})
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No submissions")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSubmissions(subs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userEmail, "user", "u", "", "Email of the submission owner")
	cmd.Flags().StringVar(&status, "status", "", "Only show this status")
	return cmd
}

func renderSubmissions(subs []models.Submission) string {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, []string{
			s.TheaterName,
			s.ScriptTitle,
			s.SubmissionDate.UTC().Format(submissions.DateLayout),
			submissions.FormatDate(s.Deadline),
			string(s.Status),
		})
	}
	return renderTable(
		[]string{"Theater", "Script", "Submitted", "Deadline", "Status"},
		rows,
		nil,
	)
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		userEmail string
		mappings  []string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import submissions from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			headers, rows, err := submissions.ParseCSV(f)
			if err != nil {
				return err
			}

			mapping := submissions.AutoMapColumns(headers)
			for _, m := range mappings {
				field, header, ok := strings.Cut(m, "=")
				if !ok {
					return fmt.Errorf("invalid --map %q, expected field=Header", m)
				}
				mapping[submissions.Field(strings.TrimSpace(field))] = strings.TrimSpace(header)
			}
			if missing := mapping.Missing(); len(missing) > 0 {
				return fmt.Errorf("no column mapped for required fields: %v", missing)
			}

			db, err := ctx.database()
			if err != nil {
				return err
			}
			user, err := findUser(db, userEmail)
			if err != nil {
				return err
			}

			result, err := submissionService(db).Import(cmd.Context(), user.ID, rows, mapping)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range result.Warnings {
				fmt.Fprintln(out, "warning:", w)
			}
			if result.HasErrors() {
				for _, e := range result.Errors {
					fmt.Fprintln(out, "error:", e)
				}
				return fmt.Errorf("import rejected: %d row error(s)", len(result.Errors))
			}
			fmt.Fprintf(out, "Imported %d submission(s)\n", len(result.Valid))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userEmail, "user", "u", "", "Email of the submission owner")
	cmd.Flags().StringArrayVar(&mappings, "map", nil, "Override a column mapping as field=Header (repeatable)")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		userEmail string
		format    string
		status    string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's submissions as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != submissions.FormatCSV && format != submissions.FormatJSON {
				return fmt.Errorf("%w: %q", submissions.ErrUnsupportedFormat, format)
			}

			db, err := ctx.database()
			if err != nil {
				return err
			}
			user, err := findUser(db, userEmail)
			if err != nil {
				return err
			}

			subs, err := submissionService(db).List(cmd.Context(), user.ID, submissions.ExportFilter{Status: status})
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if err := submissions.Write(w, format, subs); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d submission(s) to %s\n", len(subs), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userEmail, "user", "u", "", "Email of the submission owner")
	cmd.Flags().StringVarP(&format, "format", "f", submissions.FormatCSV, "Output format: csv or json")
	cmd.Flags().StringVar(&status, "status", "", "Only export this status")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}
