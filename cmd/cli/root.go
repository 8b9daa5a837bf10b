package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/client"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
)

// cliOptions are the persistent flags shared by every command.
type cliOptions struct {
	server    string
	token     string
	keypair   string
	programID string
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "jsonmeta",
		Short: "Manage authority-gated JSON records on a jsonmeta node",
		Long: `jsonmeta builds, signs and submits JSON metadata program transactions.

Records are addressed by the public key of their JSON account. The payer
keypair (--keypair) signs every transaction and must be a listed authority
for every operation except init.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:4242", "Node API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "X-Auth-Token for the node API")
	root.PersistentFlags().StringVarP(&opts.keypair, "keypair", "k", "id.json", "Payer keypair file (Solana keygen JSON)")
	root.PersistentFlags().StringVar(&opts.programID, "program", address.ProgramID.String(), "JSON metadata program id")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(
		newKeygenCmd(),
		newAirdropCmd(opts),
		newInitCmd(opts),
		newSetCmd(opts, false),
		newSetCmd(opts, true),
		newAuthorityCmd(opts, true),
		newAuthorityCmd(opts, false),
		newCloseCmd(opts),
		newGetCmd(opts),
		newSnapshotCmd(opts),
	)
	return root
}

func (o *cliOptions) client() (*client.Client, error) {
	return client.New(o.server, client.WithToken(o.token))
}

func (o *cliOptions) program() (ledger.Address, error) {
	return address.Parse(o.programID)
}

func (o *cliOptions) payer() (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(o.keypair)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", o.keypair, err)
	}
	return key, nil
}

func (o *cliOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// submit signs ix with signers and sends it. The nonce only has to make
// the signature unique, so the clock is enough.
func (o *cliOptions) submit(
	cmd *cobra.Command,
	ix ledger.Instruction,
	signers ...solana.PrivateKey,
) error {
	c, err := o.client()
	if err != nil {
		return err
	}
	tx := ledger.NewTransaction(uint64(time.Now().UnixNano()), ix)
	if err := tx.Sign(signers...); err != nil {
		return err
	}

	ctx, cancel := o.context(cmd)
	defer cancel()
	resp, err := c.Submit(ctx, tx)
	if err != nil {
		return err
	}
	printLogs(cmd.OutOrStdout(), resp.ID, resp.Logs)
	return nil
}

func printLogs(w io.Writer, id string, logs []string) {
	fmt.Fprintf(w, "executed %s\n", id)
	for _, line := range logs {
		fmt.Fprintf(w, "  %s\n", line)
	}
}
