// Package commands implements mailctl, an offline tool for keeping key
// material on the client: it generates key pairs and encrypts or decrypts
// messages without talking to the server.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

const passphraseEnv = "MAILCTL_PASSPHRASE"

// Execute runs the root command with process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the mailctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailctl",
		Short:         "Client-side OpenPGP keys and messages for pgpmail",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(keygenCmd(), encryptCmd(), decryptCmd(), fingerprintCmd())
	return root
}

// passphraseFrom returns the flag value, falling back to MAILCTL_PASSPHRASE.
func passphraseFrom(flag string) ([]byte, error) {
	if flag == "" {
		flag = os.Getenv(passphraseEnv)
	}
	if flag == "" {
		return nil, fmt.Errorf("passphrase required (--passphrase or %s)", passphraseEnv)
	}
	return []byte(flag), nil
}

// readInput reads path, or the command's stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func readKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return string(data), nil
}
