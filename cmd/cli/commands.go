package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/instruction"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

func newAirdropCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <lamports> [address]",
		Short: "Credit lamports from the node faucet (defaults to the payer)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid lamports %q: %w", args[0], err)
			}
			var target ledger.Address
			if len(args) == 2 {
				if target, err = address.Parse(args[1]); err != nil {
					return err
				}
			} else {
				payer, err := opts.payer()
				if err != nil {
					return err
				}
				target = payer.PublicKey()
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			acc, err := c.Airdrop(ctx, target, lamports)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance %d\n", acc.Address, acc.Lamports)
			return nil
		},
	}
}

func newInitCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init <json-keypair-file>",
		Short: "Create a JSON record and its metadata with the payer as authority",
		Long: `init creates the record addressed by the public key in <json-keypair-file>.
The record keypair signs the creation, so keep the file until init succeeds;
it is not needed afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := opts.program()
			if err != nil {
				return err
			}
			payer, err := opts.payer()
			if err != nil {
				return err
			}
			record, err := readSigner(args[0])
			if err != nil {
				return err
			}

			ix, err := instruction.NewInitialize(program, record.PublicKey(), payer.PublicKey())
			if err != nil {
				return err
			}
			if err := opts.submit(cmd, ix, record, payer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "record %s\n", record.PublicKey())
			return nil
		},
	}
}

func newSetCmd(opts *cliOptions, appendMode bool) *cobra.Command {
	use, short := "set", "Merge a JSON patch into the record"
	if appendMode {
		use, short = "append", "Merge a JSON patch into the record (alias of set)"
	}
	var fromFile string
	cmd := &cobra.Command{
		Use:   use + " <record> [json]",
		Short: short,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := opts.program()
			if err != nil {
				return err
			}
			record, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			value, err := patchArgument(args, fromFile)
			if err != nil {
				return err
			}
			payer, err := opts.payer()
			if err != nil {
				return err
			}

			build := instruction.NewSetValue
			if appendMode {
				build = instruction.NewAppendValue
			}
			ix, err := build(program, record, payer.PublicKey(), value)
			if err != nil {
				return err
			}
			return opts.submit(cmd, ix, payer)
		},
	}
	cmd.Flags().StringVar(&fromFile, "file", "", "Read the patch from a file instead of the argument")
	return cmd
}

func patchArgument(args []string, fromFile string) (string, error) {
	switch {
	case fromFile != "" && len(args) == 2:
		return "", fmt.Errorf("give the patch either inline or with --file")
	case fromFile != "":
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case len(args) == 2:
		return args[1], nil
	default:
		return "", fmt.Errorf("missing JSON patch")
	}
}

func newAuthorityCmd(opts *cliOptions, add bool) *cobra.Command {
	use, short := "remove-authority", "Remove every occurrence of an authority"
	if add {
		use, short = "add-authority", "Append an authority to the record"
	}
	return &cobra.Command{
		Use:   use + " <record> <authority>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := opts.program()
			if err != nil {
				return err
			}
			record, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			authority, err := address.Parse(args[1])
			if err != nil {
				return err
			}
			payer, err := opts.payer()
			if err != nil {
				return err
			}

			var ix ledger.Instruction
			if add {
				ix, err = instruction.NewAddAuthority(program, record, payer.PublicKey(), authority)
			} else {
				ix, err = instruction.NewRemoveAuthority(program, record, payer.PublicKey(), authority)
			}
			if err != nil {
				return err
			}
			return opts.submit(cmd, ix, payer)
		},
	}
}

func newCloseCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close <record>",
		Short: "Delete the record and return its lamports to the payer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := opts.program()
			if err != nil {
				return err
			}
			record, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			payer, err := opts.payer()
			if err != nil {
				return err
			}
			ix, err := instruction.NewClose(program, record, payer.PublicKey())
			if err != nil {
				return err
			}
			return opts.submit(cmd, ix, payer)
		},
	}
}

func newGetCmd(opts *cliOptions) *cobra.Command {
	var valueOnly bool
	cmd := &cobra.Command{
		Use:   "get <record>",
		Short: "Print the record's value and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := address.Parse(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			resp, err := c.JSON(ctx, record)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if valueOnly {
				fmt.Fprintln(out, string(resp.Value))
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().BoolVar(&valueOnly, "value", false, "Print only the stored JSON value")
	return cmd
}

func newSnapshotCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or restore the node's accounts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export <file>",
		Short: "Write an xz-compressed snapshot of every account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()
			if err := c.Snapshot(ctx, f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Replace every account with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			ctx, cancel := opts.context(cmd)
			defer cancel()
			return c.Restore(ctx, f)
		},
	})
	return cmd
}
