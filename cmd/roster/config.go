package main

import (
	"bytes"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/org/rostervault/internal/config"
	"github.com/org/rostervault/internal/keystore"
	"github.com/org/rostervault/internal/session"
)

var cfg config.Config

// loadConfig resolves and loads the configuration and points logging at w.
func loadConfig(w io.Writer) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w})

	c, err := config.Load(config.Path(cfgFile))
	if err != nil {
		return err
	}
	cfg = c
	zerolog.SetGlobalLevel(cfg.Level())
	return nil
}

func newSession(cmd *cobra.Command) (*session.Session, error) {
	return session.Open(cfg, passwordFunc(cmd.ErrOrStderr()))
}

// passwordFunc reads the keystore password from the configured environment
// variable, falling back to a terminal prompt. A prompted password is asked
// for once per command.
func passwordFunc(w io.Writer) keystore.PasswordFunc {
	var prompted []byte
	return func() ([]byte, error) {
		if env := cfg.Keystore.PasswordEnv; env != "" {
			if v := os.Getenv(env); v != "" {
				return []byte(v), nil
			}
		}
		if prompted == nil {
			pw, err := getPassword(w, "Keystore password: ")
			if err != nil {
				return nil, err
			}
			prompted = pw
		}
		return bytes.Clone(prompted), nil
	}
}
