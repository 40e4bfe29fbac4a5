package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"retailbot/internal/domain"
	"retailbot/internal/userstore"
	"retailbot/internal/validate"
)

func openStore(e *env) (*userstore.Store, error) {
	return userstore.Open(e.cfg.Database.Path, e.log.Named("userstore"))
}

func newUsersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered customers",
	}
	cmd.AddCommand(newUsersListCmd(e), newUsersDeactivateCmd(e), newUsersUpdateCmd(e))
	return cmd
}

func newUsersListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active customers, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(e)
			if err != nil {
				return err
			}
			defer store.Close()

			users, err := store.GetAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tEMAIL\tREGISTERED")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.FullName, u.Phone, u.Email, u.RegisteredAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newUsersDeactivateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(e)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeactivateUser(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					return fmt.Errorf("no active customer with id %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Customer %s deactivated.\n", args[0])
			return nil
		},
	}
}

func newUsersUpdateCmd(e *env) *cobra.Command {
	var name, phone, email string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a customer's name, phone or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]string{}
			for _, f := range []struct {
				key, value string
				check      func(string) (bool, string)
			}{
				{userstore.FieldFullName, name, validate.FullName},
				{userstore.FieldPhone, phone, validate.Phone},
				{userstore.FieldEmail, email, validate.Email},
			} {
				if f.value == "" {
					continue
				}
				if ok, msg := f.check(f.value); !ok {
					return errors.New(msg)
				}
				fields[f.key] = f.value
			}

			store, err := openStore(e)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.UpdateUser(cmd.Context(), args[0], fields); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Customer %s updated.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new full name")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone number")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	return cmd
}

func newStatsCmd(e *env) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(e)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			st, err := store.GeneralStats(ctx)
			if err != nil {
				return err
			}
			daily, err := store.PeriodMetrics(ctx, days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Active customers:   %d\nTotal interactions: %d\n\n", st.ActiveUsers, st.TotalInteractions)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "QUERY TYPE\tCOUNT")
			for _, q := range st.QueryTypes {
				fmt.Fprintf(tw, "%s\t%d\n", q.QueryType, q.Count)
			}
			fmt.Fprintln(tw, "\t")
			fmt.Fprintln(tw, "TOP CUSTOMER\tMESSAGES")
			for _, u := range st.TopUsers {
				fmt.Fprintf(tw, "%s\t%d\n", u.FullName, u.Messages)
			}
			fmt.Fprintln(tw, "\t")
			fmt.Fprintln(tw, "WORD\tFREQUENCY")
			for _, w := range st.TopWords {
				fmt.Fprintf(tw, "%s\t%d\n", w.Word, w.Frequency)
			}
			fmt.Fprintln(tw, "\t")
			fmt.Fprintf(tw, "DAY (last %d)\tMESSAGES\tUSERS\tNEW\tHORARIOS\tPROMOCIONES\tGENERALES\n", days)
			for _, d := range daily {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n", d.Day, d.TotalMessages, d.UniqueUsers, d.NewUsers,
					d.ScheduleQueries, d.PromotionQueries, d.GeneralQueries)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "days covered by the daily breakdown")
	return cmd
}
