package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonmeta "github.com/i5heu/ouroboros-jsonmeta"
	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/apiServer"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/instruction"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/processor"
)

func newTestClient(t *testing.T, opts ...apiServer.Option) (*Client, *jsonmeta.Node) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	node, err := jsonmeta.New(jsonmeta.Config{
		Backend: accountstore.BackendMemory,
		Logger:  logger,
	})
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Close(context.Background()) })

	srv := httptest.NewServer(apiServer.New(node, append(opts, apiServer.WithLogger(logger))...))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, WithToken("secret"))
	require.NoError(t, err)
	return c, node
}

func send(t *testing.T, c *Client, nonce uint64, ix ledger.Instruction, buildErr error, signers ...solana.PrivateKey) error {
	t.Helper()
	require.NoError(t, buildErr)
	tx := ledger.NewTransaction(nonce, ix)
	require.NoError(t, tx.Sign(signers...))
	_, err := c.Submit(context.Background(), tx)
	return err
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New("localhost:4242")
	assert.Error(t, err)
	_, err = New("http://localhost:4242/")
	assert.NoError(t, err)
}

func TestClientRecordFlow(t *testing.T) {
	ctx := context.Background()
	c, node := newTestClient(t, apiServer.WithAuth(apiServer.TokenAuth("secret")))
	program := node.ProgramID()

	payer := solana.NewWallet().PrivateKey
	acc, err := c.Airdrop(ctx, payer.PublicKey(), 3_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000_000), acc.Lamports)

	record := solana.NewWallet().PrivateKey
	ix, err := instruction.NewInitialize(program, record.PublicKey(), payer.PublicKey())
	require.NoError(t, send(t, c, 1, ix, err, record, payer))

	ix, err = instruction.NewSetValue(program, record.PublicKey(), payer.PublicKey(), `{"k":"v"}`)
	require.NoError(t, send(t, c, 2, ix, err, payer))

	got, err := c.JSON(ctx, record.PublicKey())
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(got.Value))
	assert.Equal(t, []string{payer.PublicKey().String()}, got.Metadata.Authorities)

	stranger := solana.NewWallet().PrivateKey
	_, err = c.Airdrop(ctx, stranger.PublicKey(), 1_000_000_000)
	require.NoError(t, err)
	ix, err = instruction.NewSetValue(program, record.PublicKey(), stranger.PublicKey(), `{}`)
	err = send(t, c, 3, ix, err, stranger)

	var txErr *TransactionError
	require.True(t, errors.As(err, &txErr), "got %v", err)
	code, ok := txErr.ProgramCode()
	require.True(t, ok)
	assert.Equal(t, processor.InvalidAuthority.Code(), code)
}

func TestClientNotFoundAndUnauthorized(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, apiServer.WithAuth(apiServer.TokenAuth("secret")))

	_, err := c.JSON(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)

	c.token = "wrong"
	_, err = c.Account(ctx, solana.NewWallet().PublicKey())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, 401, statusErr.Status)
}

func TestClientSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestClient(t, apiServer.WithAuth(apiServer.TokenAuth("secret")))
	dst, _ := newTestClient(t, apiServer.WithAuth(apiServer.TokenAuth("secret")))

	key := solana.NewWallet().PublicKey()
	_, err := src.Airdrop(ctx, key, 77)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Snapshot(ctx, &buf))
	require.NoError(t, dst.Restore(ctx, &buf))

	acc, err := dst.Account(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), acc.Lamports)
}
