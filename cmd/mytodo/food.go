package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/mytodo/internal/app"
	"github.com/stellarlinkco/mytodo/internal/reminder"
)

func newReminderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reminder",
		Aliases: []string{"food"},
		Short:   "Manage daily food reminders",
	}
	cmd.AddCommand(newReminderAddCmd(), newReminderRmCmd(), newReminderLsCmd())
	return cmd
}

func newReminderAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <HH:MM> <text>",
		Short: "Add a food reminder at a time of day",
		Args:  cobra.MinimumNArgs(2),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			r, err := s.ctrl.AddReminder(strings.Join(args[1:], " "), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added food reminder %s at %s: %s\n", r.ID, reminder.FormatClock(r.Time), r.Text)
			return nil
		}),
	}
}

func newReminderRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a food reminder",
		Args:    cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			r, err := s.ctrl.DeleteReminder(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted food reminder %s: %s\n", r.ID, r.Text)
			return nil
		}),
	}
}

func newReminderLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List food reminders by time of day",
		Args:    cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			out := cmd.OutOrStdout()
			reminders := s.ctrl.Reminders()
			if len(reminders) == 0 {
				fmt.Fprintln(out, "No food reminders.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, r := range reminders {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", reminder.FormatClock(r.Time), r.ID, r.Text)
			}
			return tw.Flush()
		}),
	}
}

func newSuggestCmd() *cobra.Command {
	var at, pref string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest meals for the current (or given) time of day",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			if pref != "" {
				if err := s.ctrl.SetPreference(pref); err != nil {
					return err
				}
			}
			var sg app.Suggestions
			var err error
			if at != "" {
				sg, err = s.ctrl.SuggestionsAt(at, s.ctrl.Preference())
			} else {
				sg, err = s.ctrl.Suggestions()
			}
			if err != nil {
				return err
			}
			printSuggestions(cmd.OutOrStdout(), sg)
			return nil
		}),
	}
	cmd.Flags().StringVar(&at, "at", "", "Time of day as HH:MM (default now)")
	cmd.Flags().StringVarP(&pref, "preference", "p", "", "Preference: all, veg, non-veg or hostel")
	return cmd
}

func printSuggestions(w io.Writer, sg app.Suggestions) {
	fmt.Fprintf(w, "%s suggestions (%s):\n", sg.Bucket, sg.Preference)
	for _, e := range sg.Entries {
		line := fmt.Sprintf("  - %s [%s]", e.Name, e.DietType.Label())
		if len(e.Properties) > 0 {
			line += " " + strings.Join(e.Properties, ", ")
		}
		fmt.Fprintln(w, line)
	}
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show task completion progress",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			printProgress(cmd.OutOrStdout(), s)
			return nil
		}),
	}
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks and food reminders as JSON",
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			if output == "-" {
				return s.ctrl.Export(cmd.OutOrStdout())
			}
			path := output
			if path == "" {
				path = s.ctrl.ExportFileName()
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := s.ctrl.Export(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			abs, _ := filepath.Abs(path)
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", abs)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, or - for stdout (default todo-list-export-<date>.json)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace tasks and food reminders from an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer f.Close()
				r = f
			}
			res, err := s.ctrl.Import(r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.TasksReplaced && !res.RemindersReplaced {
				fmt.Fprintln(out, "Nothing to import.")
				return nil
			}
			if res.TasksReplaced {
				fmt.Fprintf(out, "Imported %d tasks\n", res.Tasks)
			}
			if res.RemindersReplaced {
				fmt.Fprintf(out, "Imported %d food reminders\n", res.FoodReminders)
			}
			return nil
		}),
	}
}
