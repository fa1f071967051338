package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dtroode/pgpmail-server/internal/crypto/pgp"
)

func keygenCmd() *cobra.Command {
	var (
		address     string
		passphrase  string
		bits        int
		publicPath  string
		privatePath string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a passphrase-protected key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := passphraseFrom(passphrase)
			if err != nil {
				return err
			}

			pair, err := pgp.NewForge(bits).GenerateKeyPair(address, secret)
			if err != nil {
				return err
			}

			if err := os.WriteFile(publicPath, []byte(pair.PublicKey), 0o644); err != nil {
				return fmt.Errorf("failed to write public key: %w", err)
			}
			if err := os.WriteFile(privatePath, []byte(pair.PrivateKey), 0o600); err != nil {
				return fmt.Errorf("failed to write private key: %w", err)
			}

			fp, err := pgp.Fingerprint(pair.PublicKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "owner address for the key user id")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the private key")
	cmd.Flags().IntVar(&bits, "bits", pgp.DefaultRSABits, "RSA key size")
	cmd.Flags().StringVar(&publicPath, "public", "public.asc", "where to write the armored public key")
	cmd.Flags().StringVar(&privatePath, "private", "private.asc", "where to write the armored private key")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <key-file>",
		Short: "Print the fingerprint of an armored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := readKey(args[0])
			if err != nil {
				return err
			}
			fp, err := pgp.Fingerprint(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), fp)
			return nil
		},
	}
}
