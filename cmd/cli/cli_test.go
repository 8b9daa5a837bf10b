package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jsonmeta "github.com/i5heu/ouroboros-jsonmeta"
	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/apiServer"
)

const testToken = "secret"

func startNode(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	node, err := jsonmeta.New(jsonmeta.Config{Backend: accountstore.BackendMemory, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Close(context.Background()) })

	srv := httptest.NewServer(apiServer.New(node,
		apiServer.WithLogger(logger),
		apiServer.WithAuth(apiServer.TokenAuth(testToken)),
	))
	t.Cleanup(srv.Close)
	return srv.URL
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func keygen(t *testing.T, dir, name string) (string, solana.PublicKey) {
	t.Helper()
	path := filepath.Join(dir, name)
	out, err := runCLI(t, "keygen", path)
	require.NoError(t, err)
	pub, err := solana.PublicKeyFromBase58(strings.TrimSpace(out))
	require.NoError(t, err)
	return path, pub
}

func TestKeygenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path, pub := keygen(t, dir, "id.json")

	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	require.NoError(t, err)
	assert.True(t, key.PublicKey().Equals(pub))

	_, err = runCLI(t, "keygen", path)
	assert.Error(t, err, "refuses to overwrite without --force")
	_, err = runCLI(t, "keygen", "--force", path)
	assert.NoError(t, err)
}

func TestCLIRecordWorkflow(t *testing.T) {
	server := startNode(t)
	dir := t.TempDir()
	payerPath, payer := keygen(t, dir, "payer.json")
	recordPath, record := keygen(t, dir, "record.json")
	_, other := keygen(t, dir, "other.json")

	base := []string{"--server", server, "--token", testToken, "--keypair", payerPath}
	cli := func(args ...string) (string, error) {
		return runCLI(t, append(append([]string{}, base...), args...)...)
	}

	out, err := cli("airdrop", "5000000000")
	require.NoError(t, err)
	assert.Contains(t, out, payer.String())

	_, err = cli("init", recordPath)
	require.NoError(t, err)

	_, err = cli("set", record.String(), `{"name":"a","tags":[1]}`)
	require.NoError(t, err)

	patch := filepath.Join(dir, "patch.json")
	require.NoError(t, os.WriteFile(patch, []byte(`{"tags":null,"n":2}`), 0o600))
	_, err = cli("append", record.String(), "--file", patch)
	require.NoError(t, err)

	out, err = cli("get", "--value", record.String())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","n":2}`, out)

	_, err = cli("add-authority", record.String(), other.String())
	require.NoError(t, err)

	out, err = cli("get", record.String())
	require.NoError(t, err)
	var resp apiServer.RecordResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{payer.String(), other.String()}, resp.Metadata.Authorities)

	_, err = cli("remove-authority", record.String(), other.String())
	require.NoError(t, err)

	snapshot := filepath.Join(dir, "snap.xz")
	_, err = cli("snapshot", "export", snapshot)
	require.NoError(t, err)

	_, err = cli("close", record.String())
	require.NoError(t, err)
	_, err = cli("get", record.String())
	assert.Error(t, err)

	_, err = cli("snapshot", "restore", snapshot)
	require.NoError(t, err)
	out, err = cli("get", "--value", record.String())
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a","n":2}`, out)
}

func TestCLIRejectsUnauthorizedPayer(t *testing.T) {
	server := startNode(t)
	dir := t.TempDir()
	payerPath, _ := keygen(t, dir, "payer.json")
	strangerPath, _ := keygen(t, dir, "stranger.json")
	recordPath, record := keygen(t, dir, "record.json")

	_, err := runCLI(t, "--server", server, "--token", testToken, "--keypair", payerPath, "airdrop", "5000000000")
	require.NoError(t, err)
	_, err = runCLI(t, "--server", server, "--token", testToken, "--keypair", strangerPath, "airdrop", "5000000000")
	require.NoError(t, err)
	_, err = runCLI(t, "--server", server, "--token", testToken, "--keypair", payerPath, "init", recordPath)
	require.NoError(t, err)

	_, err = runCLI(t, "--server", server, "--token", testToken, "--keypair", strangerPath, "set", record.String(), `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid authority")
}

func TestPatchArgument(t *testing.T) {
	_, err := patchArgument([]string{"r"}, "")
	assert.Error(t, err)
	_, err = patchArgument([]string{"r", "{}"}, "f.json")
	assert.Error(t, err)
	v, err := patchArgument([]string{"r", `{"a":1}`}, "")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)
}
