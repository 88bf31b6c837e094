package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/example-l2/rollup"
	"github.com/eth2030/example-l2/sequencer"
)

// BalanceResponse answers GET /rollup/balance/{address}.
type BalanceResponse struct {
	Address common.Address `json:"address"`
	Balance rollup.Amount  `json:"balance"`
}

// NonceResponse answers GET /rollup/nonce/{address}.
type NonceResponse struct {
	Address common.Address `json:"address"`
	Nonce   rollup.Nonce   `json:"nonce"`
}

// CommitmentResponse answers GET /rollup/commitment.
type CommitmentResponse struct {
	Commitment rollup.Commitment `json:"commitment"`
}

// AccountJSON is one account of a snapshot.
type AccountJSON struct {
	Address common.Address `json:"address"`
	Balance rollup.Amount  `json:"balance"`
	Nonce   rollup.Nonce   `json:"nonce"`
}

// SnapshotResponse answers GET /rollup/snapshot/{block}.
type SnapshotResponse struct {
	Block      uint64            `json:"block"`
	Commitment rollup.Commitment `json:"commitment"`
	Accounts   []AccountJSON     `json:"accounts"`
}

// SubmitResponse answers POST /rollup/submit.
type SubmitResponse struct {
	Hash   common.Hash    `json:"hash"`
	Sender common.Address `json:"sender"`
}

func pathAddress(r *http.Request) (common.Address, error) {
	raw := r.PathValue("address")
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("api: invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{Address: addr, Balance: s.ledger.Balance(addr)})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, NonceResponse{Address: addr, Nonce: s.ledger.Nonce(addr)})
}

func (s *Server) handleCommitment(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CommitmentResponse{Commitment: s.ledger.Commit()})
}

func snapshotResponse(block uint64, l *rollup.Ledger) SnapshotResponse {
	resp := SnapshotResponse{Block: block, Commitment: l.Commit(), Accounts: make([]AccountJSON, 0, l.Len())}
	l.Accounts(func(addr common.Address, a rollup.Account) bool {
		resp.Accounts = append(resp.Accounts, AccountJSON{Address: addr, Balance: a.Balance, Nonce: a.Nonce})
		return true
	})
	return resp
}

func (s *Server) archiveError(w http.ResponseWriter, err error) {
	if s.notFound != nil && errors.Is(err, s.notFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.log.Warn("snapshot lookup failed", "err", err)
	writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, ErrNoArchive)
		return
	}
	block, err := strconv.ParseUint(r.PathValue("block"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("api: invalid block number %q", r.PathValue("block")))
		return
	}
	l, err := s.archive.Get(block)
	if err != nil {
		s.archiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(block, l))
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, http.StatusNotFound, ErrNoArchive)
		return
	}
	block, l, err := s.archive.Latest()
	if err != nil {
		s.archiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(block, l))
}

// handleSubmit checks the transaction's encoding and signature and forwards
// it unchanged to the sequencer. Balance and nonce are checked only when the
// transaction is executed.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stx, err := rollup.DecodeTransaction(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sender, err := stx.Recover(s.signers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payload, err := stx.Encode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	ns := s.ledger.Namespace()
	if err := s.submitter.SubmitTransaction(r.Context(), sequencer.Transaction{Namespace: ns, Payload: payload}); err != nil {
		s.log.Warn("forwarding transaction failed", "hash", stx.Hash(), "err", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("api: sequencer rejected submission: %w", err))
		return
	}
	s.metrics.Submitted.Inc()
	s.log.Info("forwarded transaction", "hash", stx.Hash(), "sender", sender, "namespace", ns,
		"nonce", stx.Transaction.Nonce)
	writeJSON(w, http.StatusAccepted, SubmitResponse{Hash: stx.Hash(), Sender: sender})
}
