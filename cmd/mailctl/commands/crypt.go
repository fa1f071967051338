package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
)

func encryptCmd() *cobra.Command {
	var keyPath, inPath string

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt stdin (or --in) for a public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(keyPath)
			if err != nil {
				return err
			}
			plaintext, err := readInput(cmd, inPath)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			armored, err := pgp.NewEngine().Encrypt(plaintext, key)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), armored)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "armored public key file")
	cmd.Flags().StringVar(&inPath, "in", "", "plaintext file (default stdin)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func decryptCmd() *cobra.Command {
	var keyPath, inPath, passphrase string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt an armored message from stdin (or --in)",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := passphraseFrom(passphrase)
			if err != nil {
				return err
			}
			key, err := readKey(keyPath)
			if err != nil {
				return err
			}
			ciphertext, err := readInput(cmd, inPath)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			plaintext, err := pgp.NewEngine().Decrypt(string(ciphertext), key, secret)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(plaintext)
			return err
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "armored private key file")
	cmd.Flags().StringVar(&inPath, "in", "", "armored message file (default stdin)")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase unlocking the private key")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
