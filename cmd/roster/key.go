package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/org/rostervault/internal/crypto"
	"github.com/org/rostervault/internal/keystore"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "key", Short: "Manage the roster keystore"}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a new roster key and store it in the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			ks, err := keystore.Open(cfg.Keystore.Path)
			if errors.Is(err, keystore.ErrNotFound) {
				ks, err = keystore.New(cfg.Keystore.Path), nil
			}
			if err != nil {
				return err
			}
			if ks.Has(cfg.Keystore.Alias) && !force {
				return fmt.Errorf("keystore %s already holds %q; records written with it would become unreadable (use --force to replace)",
					ks.Path(), cfg.Keystore.Alias)
			}

			pw, err := newKeyPassword(cmd)
			if err != nil {
				return err
			}
			defer clear(pw)

			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			defer clear(key)

			if err := ks.Put(cfg.Keystore.Alias, pw, key); err != nil {
				return err
			}
			if err := ks.Save(); err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), map[string]any{
				"keystore": ks.Path(),
				"alias":    cfg.Keystore.Alias,
			})
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Replace an existing key under the same alias")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the aliases in the keystore",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := keystore.Open(cfg.Keystore.Path)
			if err != nil {
				return err
			}
			for _, a := range ks.Aliases() {
				fmt.Fprintln(cmd.OutOrStdout(), a)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, listCmd)
	return cmd
}

// newKeyPassword takes the password from the environment, or prompts twice.
func newKeyPassword(cmd *cobra.Command) ([]byte, error) {
	if env := cfg.Keystore.PasswordEnv; env != "" {
		if v := os.Getenv(env); v != "" {
			return []byte(v), nil
		}
	}
	w := cmd.ErrOrStderr()
	pw, err := getPassword(w, "New keystore password: ")
	if err != nil {
		return nil, err
	}
	again, err := getPassword(w, "Repeat password: ")
	if err != nil {
		clear(pw)
		return nil, err
	}
	defer clear(again)
	if !bytes.Equal(pw, again) {
		clear(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}
