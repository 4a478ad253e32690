package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/mytodo/internal/apperr"
	"github.com/stellarlinkco/mytodo/internal/task"
)

const dueLayout = "2006-01-02 15:04"

// parseDue accepts RFC 3339 or a local "YYYY-MM-DD HH:MM" / "YYYY-MM-DDTHH:MM".
func parseDue(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if due, err := time.Parse(time.RFC3339, raw); err == nil {
		return &due, nil
	}
	for _, layout := range []string{dueLayout, "2006-01-02T15:04"} {
		if due, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &due, nil
		}
	}
	return nil, apperr.Validation("due date %q must look like %q or RFC 3339", raw, dueLayout)
}

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(newTaskAddCmd(), newTaskEditCmd(), newTaskDoneCmd(), newTaskRmCmd(), newTaskLsCmd())
	return cmd
}

type taskFlags struct {
	text     string
	priority string
	category string
	custom   string
	due      string
	clearDue bool
}

func (f *taskFlags) register(cmd *cobra.Command, withText bool) {
	if withText {
		cmd.Flags().StringVar(&f.text, "text", "", "Task text")
		cmd.Flags().BoolVar(&f.clearDue, "clear-due", false, "Remove the due date")
	}
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Priority: low, medium or high")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "Category: Work, Personal, Health or Custom")
	cmd.Flags().StringVar(&f.custom, "custom-category", "", "Label used when --category is Custom")
	cmd.Flags().StringVarP(&f.due, "due", "d", "", "Due date, e.g. \"2025-03-01 17:00\"")
}

func newTaskAddCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			due, err := parseDue(f.due)
			if err != nil {
				return err
			}
			t, err := s.ctrl.AddTask(task.Input{
				Text:     strings.Join(args, " "),
				Priority: task.Priority(f.priority),
				Category: task.ResolveCategory(f.category, f.custom),
				DueDate:  due,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s: %s\n", t.ID, t.Text)
			return nil
		}),
	}
	f.register(cmd, false)
	return cmd
}

func newTaskEditCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			cur, ok := s.ctrl.Task(args[0])
			if !ok {
				return apperr.NotFound("task", args[0])
			}
			in := task.Input{
				Text:     cur.Text,
				Priority: cur.Priority,
				Category: cur.Category,
				DueDate:  cur.DueDate,
			}
			flags := cmd.Flags()
			if flags.Changed("text") {
				in.Text = f.text
			}
			if flags.Changed("priority") {
				in.Priority = task.Priority(f.priority)
			}
			if flags.Changed("category") {
				in.Category = task.ResolveCategory(f.category, f.custom)
			}
			if flags.Changed("due") {
				due, err := parseDue(f.due)
				if err != nil {
					return err
				}
				in.DueDate = due
			}
			if f.clearDue {
				in.DueDate = nil
			}
			t, err := s.ctrl.EditTask(cur.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s: %s\n", t.ID, t.Text)
			return nil
		}),
	}
	f.register(cmd, true)
	return cmd
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between completed and active",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.ctrl.ToggleTask(args[0])
			if err != nil {
				return err
			}
			state := "active"
			if t.Completed {
				state = "completed"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task %s is now %s\n", t.ID, state)
			if msg := s.ctrl.Motivation(); msg != "" && t.Completed {
				fmt.Fprintln(out, msg)
			}
			return nil
		}),
	}
}

func newTaskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			t, err := s.ctrl.DeleteTask(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s: %s\n", t.ID, t.Text)
			return nil
		}),
	}
}

func newTaskLsCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, args []string, s *session) error {
			if err := s.ctrl.SetFilter(filter); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			tasks := s.ctrl.Tasks()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
			} else {
				printTasks(out, tasks)
			}
			printProgress(out, s)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "Filter: all, active or completed")
	return cmd
}

func printTasks(w io.Writer, tasks []task.Task) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Local().Format(dueLayout)
		}
		category := t.Category
		if category == "" {
			category = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", mark, t.ID, t.Text, t.Priority, category, due)
	}
	tw.Flush()
}

func printProgress(w io.Writer, s *session) {
	p := s.ctrl.Progress()
	fmt.Fprintf(w, "Progress: %d/%d completed (%d%%)\n", p.Completed, p.Total, p.Percent())
	if msg := s.ctrl.Motivation(); msg != "" {
		fmt.Fprintln(w, msg)
	}
}
