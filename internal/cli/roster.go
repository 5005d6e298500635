package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreboss/internal/model"
	"github.com/dukerupert/choreboss/internal/tracker"
)

type OutputOptions struct {
	*RootOptions
	JSON bool
}

func NewRosterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OutputOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Print the rotation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := opts.openTracker()
			if err != nil {
				return err
			}
			defer db.Close()

			people, err := svc.People(commandContext(cmd))
			if err != nil {
				return WrapExitError(ExitCommandError, "list people", err)
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), people)
			}
			return printRoster(cmd.OutOrStdout(), people)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON instead of a table")
	return cmd
}

func NewNextCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OutputOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "next <person-id>",
		Short: "Show who follows a person in the rotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, db, err := opts.openTracker()
			if err != nil {
				return err
			}
			defer db.Close()

			next, err := svc.NextPerson(commandContext(cmd), &id)
			if err != nil {
				return WrapExitError(ExitCommandError, "next person", err)
			}
			if next == nil {
				return NewExitError(ExitFailure, "roster is empty")
			}
			if opts.JSON {
				return writeJSON(cmd.OutOrStdout(), next)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", next.ID, next.FullName())
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print JSON")
	return cmd
}

type CompleteOptions struct {
	*RootOptions
	PIN string
}

func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "complete <chore-id>",
		Short: "Mark a chore done and hand it to the next person",
		Long: `Complete a chore as its current assignee (or an admin).

Example:
  choreboss complete 3 --pin 1234`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, db, err := opts.openTracker()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := commandContext(cmd)
			chore, err := svc.CompleteChore(ctx, opts.PIN, id)
			switch {
			case errors.Is(err, tracker.ErrUnauthorized):
				return NewExitError(ExitFailure, "PIN not accepted for this chore")
			case errors.Is(err, tracker.ErrNotFound), errors.Is(err, tracker.ErrValidation):
				return WrapExitError(ExitFailure, "complete chore", err)
			case err != nil:
				return WrapExitError(ExitCommandError, "complete chore", err)
			}

			out := cmd.OutOrStdout()
			if chore.AssignedTo == nil {
				_, err = fmt.Fprintf(out, "completed %q\n", chore.Name)
				return err
			}
			next, err := svc.Person(ctx, *chore.AssignedTo)
			if err != nil {
				return WrapExitError(ExitCommandError, "load next assignee", err)
			}
			_, err = fmt.Fprintf(out, "completed %q, now assigned to %s\n", chore.Name, next.FullName())
			return err
		},
	}

	cmd.Flags().StringVar(&opts.PIN, "pin", "", "PIN of the assignee or an admin (required)")
	_ = cmd.MarkFlagRequired("pin")

	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q", s))
	}
	return id, nil
}

func printRoster(w io.Writer, people []model.Person) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tNAME\tADMIN")
	for _, p := range people {
		admin := ""
		if p.IsAdmin {
			admin = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", p.Sequence, p.ID, p.FullName(), admin)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
