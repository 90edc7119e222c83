package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cusext/auth"
	"cusext/disagreement"
)

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "cusextctl",
		Short:         "Administer non-contract records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}
	cobra.EnableCommandSorting = false

	root.PersistentFlags().StringVar(&c.configFile, "config-file", "", "TOML config file (default $CUSEXT_CONFIG)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	root.AddCommand(migrateCmd(c))
	root.AddCommand(recordCmd(c))
	root.AddCommand(activityCmd(c))
	root.AddCommand(operatorCmd(c))
	root.AddCommand(tokenCmd(c))
	return root
}

func migrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:  "up",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.newMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Up(); err != nil {
				return err
			}
			return printVersion(cmd, m)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:  "down [steps]",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer")
				}
				steps = n
			}
			m, err := c.newMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.Down(steps); err != nil {
				return err
			}
			return printVersion(cmd, m)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:  "version",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.newMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()
			return printVersion(cmd, m)
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, m migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}

func recordCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Inspect and delete non-contract records",
	}
	cmd.AddCommand(listRecordCmd(c))
	cmd.AddCommand(showRecordCmd(c))
	cmd.AddCommand(deleteRecordCmd(c))
	return cmd
}

func listRecordCmd(c *cli) *cobra.Command {
	var flags struct {
		Scope  string
		Output string
	}
	cmd := &cobra.Command{
		Use:  "list <activityID>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, ok := disagreement.ParseScope(flags.Scope)
			if !ok {
				return fmt.Errorf("scope must be branch or hq")
			}
			r, err := newRenderer(flags.Output)
			if err != nil {
				return err
			}
			items, err := c.records.List(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			return r.Render(cmd.OutOrStdout(), items)
		},
	}
	cmd.Flags().StringVar(&flags.Scope, "scope", "branch", "branch or hq")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", string(formatTable), "table or json")
	return cmd
}

func showRecordCmd(c *cli) *cobra.Command {
	var flags struct {
		Scope  string
		Output string
	}
	cmd := &cobra.Command{
		Use:  "show <recordNumber>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, ok := disagreement.ParseScope(flags.Scope)
			if !ok {
				return fmt.Errorf("scope must be branch or hq")
			}
			r, err := newRenderer(flags.Output)
			if err != nil {
				return err
			}
			d, err := c.records.Get(cmd.Context(), args[0], scope)
			if err != nil {
				if errors.Is(err, disagreement.ErrNotFound) {
					return fmt.Errorf("record %s not found in %s scope", args[0], scope)
				}
				return err
			}
			return r.Render(cmd.OutOrStdout(), d)
		},
	}
	cmd.Flags().StringVar(&flags.Scope, "scope", "branch", "branch or hq")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", string(formatTable), "table or json")
	return cmd
}

func deleteRecordCmd(c *cli) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:  "delete <recordNumber>",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", args[0])
			}
			if err := c.records.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func activityCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Manage parent activities",
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <activityID>",
		Short: "Delete an activity and every record it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete activity %s without --yes", args[0])
			}
			res, err := c.activities.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted activity %s and %d record(s)\n", res.ActivityID, res.RecordsDeleted)
			return nil
		},
	}
	del.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	cmd.AddCommand(del)
	return cmd
}

func operatorCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage operator accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add <operatorID> <name>",
		Short: "Create an operator; the password is read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password from stdin: %w", err)
			}
			op, err := c.operators.Register(cmd.Context(), auth.RegisterRequest{
				OperatorID: args[0],
				Name:       args[1],
				Password:   strings.TrimRight(line, "\r\n"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created operator %s (%s)\n", op.ID, op.Name)
			return nil
		},
	})
	return cmd
}

func tokenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token <operatorID>",
		Short: "Issue a bearer token for an existing operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSecret(); err != nil {
				return err
			}
			res, err := c.operators.TokenFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
}
