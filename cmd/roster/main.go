package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/org/rostervault/internal/session"
)

var (
	cfgFile      string
	outputFormat string // "table", "json"
)

// now is replaced in tests.
var now = time.Now

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "roster",
		Short: "Membership roster CLI",
		Long:  "Scrape the society members page and keep the roster as encrypted record files.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != "table" && outputFormat != "json" {
				return fmt.Errorf("unknown output format %q (want table or json)", outputFormat)
			}
			return loadConfig(cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $ROSTER_CONFIG or roster.yaml)")
	root.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table, json")

	root.AddCommand(
		scrapeCmd(),
		reloadCmd(),
		listCmd(),
		showCmd(),
		saveCmd(),
		promptCmd(),
		pruneCmd(),
		keyCmd(),
	)
	return root
}

// --- scrape ---

func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the members page and print the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			save, _ := cmd.Flags().GetBool("save")
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			if _, err := sess.Scrape(cmd.Context()); err != nil {
				return err
			}
			if err := printMembers(cmd.OutOrStdout(), sess.Roster().Sorted(), now()); err != nil {
				return err
			}
			if !save {
				return nil
			}
			return saveRoster(cmd, sess)
		},
	}
	cmd.Flags().Bool("save", false, "Write the scraped roster to the data directory")
	return cmd
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Scrape the members page and write every member to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			if _, err := sess.Scrape(cmd.Context()); err != nil {
				return err
			}
			return saveRoster(cmd, sess)
		},
	}
}

func saveRoster(cmd *cobra.Command, sess *session.Session) error {
	n, err := sess.Save()
	printResult(cmd.OutOrStdout(), map[string]any{"saved": n, "dir": cfg.DataDir})
	return err
}

// --- reload / list / show ---

func reloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Load every record file and report how many were read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			n, err := sess.Reload()
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), map[string]any{
				"loaded":        n,
				"dir":           cfg.DataDir,
				"duplicate_ids": sess.Roster().DuplicateIDs(),
			})
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Load the roster from disk and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			if _, err := sess.Reload(); err != nil {
				return err
			}
			return printMembers(cmd.OutOrStdout(), sess.Roster().Sorted(), now())
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one member's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid member id %q", args[0])
			}
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			m, err := sess.Lookup(id)
			if err != nil {
				return err
			}
			printMember(cmd.OutOrStdout(), m, now())
			return nil
		},
	}
}

// --- prune ---

func pruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete the records of expired members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			if _, err := sess.Reload(); err != nil {
				return err
			}
			pruned, err := sess.Prune(now())
			printResult(cmd.OutOrStdout(), map[string]any{
				"pruned":    pruned,
				"remaining": sess.Roster().Len(),
			})
			return err
		},
	}
}

// --- prompt ---

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Interactive session: scrape or reload, list, then optionally save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			choice, err := ask(in, out, "Scrape or reload? (s/r)", "s", "r")
			if err != nil {
				return err
			}
			if choice == "s" {
				_, err = sess.Scrape(cmd.Context())
			} else {
				_, err = sess.Reload()
			}
			if err != nil {
				return err
			}
			if err := printMembers(out, sess.Roster().Sorted(), now()); err != nil {
				return err
			}

			choice, err = ask(in, out, "Save? (y/n)", "y", "n")
			if err != nil {
				return err
			}
			if choice == "n" {
				return nil
			}
			return saveRoster(cmd, sess)
		},
	}
}
