package apiServer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	jsonmeta "github.com/i5heu/ouroboros-jsonmeta"
	"github.com/i5heu/ouroboros-jsonmeta/internal/runtime"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/monitor"
)

// Node is the part of *jsonmeta.Node the server exposes.
type Node interface {
	ProgramID() ledger.Address
	Submit(ctx context.Context, tx *ledger.Transaction) (runtime.Receipt, error)
	Airdrop(ctx context.Context, addr ledger.Address, lamports uint64) error
	Account(ctx context.Context, addr ledger.Address) (ledger.Account, error)
	Record(ctx context.Context, jsonAddr ledger.Address) (jsonmeta.Record, error)
	Snapshot(ctx context.Context, w io.Writer) error
	Restore(ctx context.Context, r io.Reader) error
	Health(ctx context.Context) (monitor.NodeHealth, error)
}

var _ Node = (*jsonmeta.Node)(nil)

type SubmitRequest struct {
	// Transaction is the Borsh encoded signed transaction in standard base64.
	Transaction string `json:"transaction"`
}

type SubmitResponse struct {
	ID   string   `json:"id"`
	Logs []string `json:"logs"`
}

// ErrorResponse is returned for rejected transactions. Code is set for
// program errors and Instruction for failures inside an instruction.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Code        *uint32  `json:"code,omitempty"`
	Instruction *int     `json:"instruction,omitempty"`
	ID          string   `json:"id,omitempty"`
	Logs        []string `json:"logs,omitempty"`
}

type AirdropRequest struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

type AccountResponse struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	Lamports   uint64 `json:"lamports"`
	Data       []byte `json:"data"`
	Executable bool   `json:"executable"`
}

type MetadataResponse struct {
	Bump        uint8    `json:"bump"`
	Mutable     bool     `json:"mutable"`
	Authorities []string `json:"authorities"`
}

type RecordResponse struct {
	Address         string           `json:"address"`
	MetadataAddress string           `json:"metadataAddress"`
	Value           json.RawMessage  `json:"value"`
	Metadata        MetadataResponse `json:"metadata"`
}

type AuthFunc func(req *http.Request) error

type Option func(*Server)
