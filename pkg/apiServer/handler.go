package apiServer

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/i5heu/ouroboros-jsonmeta/internal/runtime"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/ledger"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/processor"
)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) { // PA
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Transaction)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid transaction encoding: %v", err), http.StatusBadRequest)
		return
	}
	tx, err := ledger.DecodeTransaction(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	receipt, err := s.node.Submit(r.Context(), tx)
	if err != nil {
		if status := nodeStatus(err); status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		resp := ErrorResponse{
			Error: err.Error(),
			ID:    receipt.ID.String(),
			Logs:  receipt.Logs,
		}
		var programErr processor.Error
		if errors.As(err, &programErr) {
			code := programErr.Code()
			resp.Code = &code
		}
		var ixErr *runtime.InstructionError
		if errors.As(err, &ixErr) {
			index := ixErr.Index
			resp.Instruction = &index
		}
		s.log.Info("transaction rejected", "id", resp.ID, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	w.Header().Set("X-Execution-Id", receipt.ID.String())
	writeJSON(w, http.StatusOK, SubmitResponse{
		ID:   receipt.ID.String(),
		Logs: receipt.Logs,
	})
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) { // PA
	var req AirdropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Lamports == 0 {
		http.Error(w, "lamports must be positive", http.StatusBadRequest)
		return
	}

	if err := s.node.Airdrop(r.Context(), addr, req.Lamports); err != nil {
		s.writeError(w, "airdrop failed", err)
		return
	}
	s.writeAccount(w, r, addr)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) { // A
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeAccount(w, r, addr)
}

func (s *Server) writeAccount(w http.ResponseWriter, r *http.Request, addr ledger.Address) {
	acc, err := s.node.Account(r.Context(), addr)
	if err != nil {
		s.writeError(w, "failed to read account", err)
		return
	}
	writeJSON(w, http.StatusOK, AccountResponse{
		Address:    addr.String(),
		Owner:      acc.Owner.String(),
		Lamports:   acc.Lamports,
		Data:       acc.Data,
		Executable: acc.Executable,
	})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) { // A
	addr, err := parseAddress(r.PathValue("address"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := s.node.Record(r.Context(), addr)
	if err != nil {
		s.writeError(w, "failed to read record", err)
		return
	}

	authorities := make([]string, 0, len(rec.Metadata.Authorities))
	for _, a := range rec.Metadata.Authorities {
		authorities = append(authorities, a.String())
	}
	writeJSON(w, http.StatusOK, RecordResponse{
		Address:         rec.Address.String(),
		MetadataAddress: rec.MetadataAddress.String(),
		Value:           rec.Value,
		Metadata: MetadataResponse{
			Bump:        rec.Metadata.Bump,
			Mutable:     rec.Metadata.Mutable,
			Authorities: authorities,
		},
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) { // A
	w.Header().Set("Content-Type", "application/x-xz")
	w.Header().Set("Content-Disposition", `attachment; filename="jsonmeta.snapshot.xz"`)
	if err := s.node.Snapshot(r.Context(), w); err != nil {
		// Headers may already be sent; the truncated stream fails to import.
		s.log.Error("snapshot failed", "error", err)
	}
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) { // A
	if err := s.node.Restore(r.Context(), r.Body); err != nil {
		if status := nodeStatus(err); status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		http.Error(w, fmt.Sprintf("restore failed: %v", err), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeError(w http.ResponseWriter, msg string, err error) {
	status := nodeStatus(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.log.Error(msg, "error", err)
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) { // A
	report, err := s.node.Health(r.Context())
	if err != nil {
		status := nodeStatus(err)
		if status == 0 {
			status = http.StatusInternalServerError
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
