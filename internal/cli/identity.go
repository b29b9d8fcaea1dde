package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/roach88/thisme/internal/vault"
)

// IdentityOptions holds flags shared by the identity subcommands.
type IdentityOptions struct {
	*RootOptions
	Dir  string
	Hash string
}

// IdentityOutput describes an unlocked identity.
type IdentityOutput struct {
	Username     string              `json:"username"`
	PublicKey    string              `json:"public_key"`
	File         string              `json:"file"`
	Attributes   map[string]any      `json:"attributes"`
	Endorsements []vault.Endorsement `json:"endorsements"`
}

// NewIdentityCommand creates the identity command group.
func NewIdentityCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IdentityOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage local encrypted identities",
		Long: `Create and edit identities stored as encrypted files.

Each identity lives in <dir>/<username>.me, encrypted with a key derived
from the username and hash. The default directory is ~/.this/me.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", "", "identity directory (default ~/.this/me)")
	cmd.PersistentFlags().StringVar(&opts.Hash, "hash", "", "identity hash (required)")
	_ = cmd.MarkPersistentFlagRequired("hash")

	cmd.AddCommand(&cobra.Command{
		Use:           "create <username>",
		Short:         "Create a new identity file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(opts, cmd, args[0], true, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <username>",
		Short:         "Unlock an identity and print it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(opts, cmd, args[0], false, nil)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <username> <key> <value>",
		Short: "Set an attribute and save",
		Long: `Set an attribute on an identity and save the file.

A value that is valid JSON is stored decoded; anything else is stored as a
string.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseArg(args[2])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid value", err)
			}
			return withVault(opts, cmd, args[0], false, func(v *vault.Vault) error {
				return v.SetAttribute(args[1], value)
			})
		},
	})

	var by, statement, signature string
	endorse := &cobra.Command{
		Use:           "endorse <username>",
		Short:         "Record an endorsement and save",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withVault(opts, cmd, args[0], false, func(v *vault.Vault) error {
				return v.AddEndorsement(vault.Endorsement{
					By:        by,
					Statement: statement,
					Signature: signature,
					At:        nowMillis(),
				})
			})
		},
	}
	endorse.Flags().StringVar(&by, "by", "", "endorsing username")
	endorse.Flags().StringVar(&statement, "statement", "", "what is endorsed")
	endorse.Flags().StringVar(&signature, "signature", "", "optional signature")
	cmd.AddCommand(endorse)

	return cmd
}

// withVault creates or opens the identity, applies edit (saving when it is
// set), prints the identity and locks it again.
func withVault(opts *IdentityOptions, cmd *cobra.Command, username string, create bool, edit func(*vault.Vault) error) error {
	f := newFormatter(opts.RootOptions, cmd)

	dir := opts.Dir
	if dir == "" {
		d, err := vault.DefaultDir()
		if err != nil {
			return WrapExitError(ExitCommandError, "no identity directory", err)
		}
		dir = d
	}

	var (
		v   *vault.Vault
		err error
	)
	if create {
		v, err = vault.Create(dir, username, opts.Hash)
	} else {
		v, err = vault.Open(dir, username, opts.Hash)
	}
	if err != nil {
		return vaultError(f, err)
	}
	defer v.Lock()

	if edit != nil {
		if err := edit(v); err != nil {
			return vaultError(f, err)
		}
		if err := v.Save(); err != nil {
			return vaultError(f, err)
		}
	}

	out, err := describeVault(v)
	if err != nil {
		return vaultError(f, err)
	}
	return f.Emit(out, func(w io.Writer) { writeIdentityText(w, out, create) })
}

func describeVault(v *vault.Vault) (IdentityOutput, error) {
	id, err := v.Identity()
	if err != nil {
		return IdentityOutput{}, err
	}
	attrs, err := v.Attributes()
	if err != nil {
		return IdentityOutput{}, err
	}
	ends, err := v.Endorsements()
	if err != nil {
		return IdentityOutput{}, err
	}
	return IdentityOutput{
		Username:     id.Username,
		PublicKey:    id.PublicKey,
		File:         v.Path(),
		Attributes:   attrs,
		Endorsements: ends,
	}, nil
}

// vaultError maps vault failures to exit codes: bad input and missing files
// are command errors, a wrong hash or existing identity is a failure.
func vaultError(f *OutputFormatter, err error) error {
	var verrs validator.ValidationErrors
	code := ExitFailure
	switch {
	case errors.As(err, &verrs), errors.Is(err, vault.ErrNotFound):
		code = ExitCommandError
	}
	return f.Fail(code, ErrCodeVault, err.Error(), nil, func(w io.Writer) {
		fmt.Fprintf(w, "✗ %v\n", err)
	})
}

func writeIdentityText(w io.Writer, out IdentityOutput, created bool) {
	if created {
		fmt.Fprintf(w, "✓ Created identity %s\n", out.Username)
	}
	fmt.Fprintf(w, "username:   %s\n", out.Username)
	fmt.Fprintf(w, "public_key: %s\n", out.PublicKey)
	fmt.Fprintf(w, "file:       %s\n", out.File)

	if len(out.Attributes) > 0 {
		fmt.Fprintln(w, "attributes:")
		keys := make([]string, 0, len(out.Attributes))
		for k := range out.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, out.Attributes[k])
		}
	}
	if len(out.Endorsements) > 0 {
		fmt.Fprintln(w, "endorsements:")
		for _, e := range out.Endorsements {
			fmt.Fprintf(w, "  %s: %s\n", e.By, e.Statement)
		}
	}
}
