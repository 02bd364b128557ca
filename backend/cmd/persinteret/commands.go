package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"persinteret/backend/internal/state"
)

// peopleDAO is the subset of people.DAO the CLI drives
type peopleDAO interface {
	GetPeopleList(ctx context.Context, filterText string, withImage bool, limit int) []state.Person
	Delete(ctx context.Context, person *state.Person) bool
	DeleteAll(ctx context.Context) bool
	GetFreeRatio(ctx context.Context) int
	GetPhotoCount(ctx context.Context) int64
	GetPeopleCount(ctx context.Context) int64
	GetYoungestPerson(ctx context.Context) string
	GetNextTargetName(ctx context.Context) string
	GetAverageAge(ctx context.Context) int
}

type backend struct {
	dao          peopleDAO
	ensureSchema func(ctx context.Context) error
	close        func() error
}

type opener func(ctx context.Context) (*backend, error)

// newRootCmd builds the command tree. The returned closer releases the backend
// opened by the command, if any, and must run whether or not the command failed.
func newRootCmd(open opener) (*cobra.Command, func() error) {
	var be *backend
	closeBackend := func() error {
		if be == nil || be.close == nil {
			return nil
		}
		err := be.close()
		be = nil
		return err
	}

	rootCmd := &cobra.Command{
		Use:           "persinteret",
		Short:         "Administer the persons-of-interest graph and photo stores",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			be, err = open(cmd.Context())
			return err
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List persons ordered by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			withImage, _ := cmd.Flags().GetBool("with-image")

			people := be.dao.GetPeopleList(cmd.Context(), filter, withImage, limit)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCODE NAME\tSTATUS\tBORN\tCONNECTIONS\tPHOTO")
			for _, p := range people {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
					p.ID, p.Name, p.CodeName, p.Status, p.DateOfBirth,
					strings.Join(p.Connections, ", "), len(p.Photo))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().String("filter", "", "Case-insensitive name prefix")
	listCmd.Flags().Int("limit", 0, "Maximum number of persons (0 uses the default)")
	listCmd.Flags().Bool("with-image", false, "Load photos and print their size")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "people:       %d\n", be.dao.GetPeopleCount(ctx))
			fmt.Fprintf(out, "photos:       %d\n", be.dao.GetPhotoCount(ctx))
			fmt.Fprintf(out, "free ratio:   %d%%\n", be.dao.GetFreeRatio(ctx))
			fmt.Fprintf(out, "average age:  %d\n", be.dao.GetAverageAge(ctx))
			fmt.Fprintf(out, "youngest:     %s\n", be.dao.GetYoungestPerson(ctx))
			fmt.Fprintf(out, "next target:  %s\n", be.dao.GetNextTargetName(ctx))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one person and its photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !be.dao.Delete(cmd.Context(), &state.Person{ID: args[0]}) {
				return fmt.Errorf("failed to delete person %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every person and every photo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("refusing to purge without --yes")
			}
			if !be.dao.DeleteAll(cmd.Context()) {
				return errors.New("purge failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all data deleted")
			return nil
		},
	}
	purgeCmd.Flags().Bool("yes", false, "Confirm deletion of all data")

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Create the graph uniqueness constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := be.ensureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}

	rootCmd.AddCommand(listCmd, statsCmd, deleteCmd, purgeCmd, schemaCmd)
	return rootCmd, closeBackend
}

// execute runs the command tree and always releases the backend afterwards
func execute(ctx context.Context, open opener, args []string, out io.Writer) error {
	rootCmd, closeBackend := newRootCmd(open)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if closeErr := closeBackend(); err == nil {
		err = closeErr
	}
	return err
}
