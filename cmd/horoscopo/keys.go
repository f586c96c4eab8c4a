package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/danrleybayoshi/horoscopo/internal/vault"
)

// rewriteKeyName is the vault entry used by the rewrite API.
const rewriteKeyName = "rewrite"

func newKeysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider credentials in the OS keychain",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show which configured credentials resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			v := vault.New()
			out := cmd.OutOrStdout()
			if len(cfg.Providers) == 0 {
				fmt.Fprintln(out, "No providers configured")
			}
			for _, p := range cfg.Providers {
				fmt.Fprintf(out, "  %-16s %s\n", p.Name, keyState(v, p.Name, p.KeyRef))
			}
			if cfg.Rewrite.Enabled {
				fmt.Fprintf(out, "  %-16s %s\n", rewriteKeyName, keyState(v, rewriteKeyName, cfg.Rewrite.KeyRef))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential (read without echo)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			fmt.Fprintf(cmd.ErrOrStderr(), "Enter API key for %s: ", name)
			key, err := readSecret(cmd.InOrStdin())
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			if err := vault.New().Set(name, key); err != nil {
				return fmt.Errorf("storing key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key for %s stored successfully\n", name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <name>",
		Short: "Show a masked credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			key, err := vault.New().Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, mask(key))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a credential from the keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(args[0])
			if err := vault.New().Delete(name); err != nil {
				return fmt.Errorf("deleting key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Key for %s deleted\n", name)
			return nil
		},
	})

	return cmd
}

func keyState(v *vault.Vault, name, keyRef string) string {
	ref := keyRef
	if ref == "" {
		ref = "keychain or $" + vault.EnvVar(name)
	}
	if _, err := v.Resolve(name, keyRef); err != nil {
		return "missing (" + ref + ")"
	}
	return "set     (" + ref + ")"
}

// readSecret reads one line without echo when in is a terminal, and as
// plain text otherwise so keys can be piped in.
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
