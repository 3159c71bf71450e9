package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/bchgate/internal/fault"
	"github.com/Klingon-tech/bchgate/internal/indexer"
	"github.com/Klingon-tech/bchgate/internal/resolver"
	"github.com/Klingon-tech/bchgate/pkg/types"
)

// bulkConcurrency bounds the resolutions a bulk request runs at once.
const bulkConcurrency = 4

// handlePubKey serves GET /v1/address/pubkey/{address}.
func (s *Server) handlePubKey(w http.ResponseWriter, r *http.Request) {
	addr := r.PathValue("address")
	res, err := s.resolver.ResolvePublicKey(r.Context(), addr)
	if err != nil {
		status := s.statusFor(r, err)
		writeJSON(w, status, PubKeyResponse{Success: false, Error: clientMessage(status, err)})
		return
	}
	writeJSON(w, http.StatusOK, pubKeyPayload(addr, res))
}

// handleBulkPubKey serves POST /v1/address/pubkey. The request fails as
// a whole if any address is invalid or any resolution faults.
func (s *Server) handleBulkPubKey(w http.ResponseWriter, r *http.Request) {
	var req BulkPubKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, PubKeyResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, PubKeyResponse{Error: "invalid JSON"})
		return
	}
	if len(req.Addresses) == 0 {
		writeJSON(w, http.StatusBadRequest, PubKeyResponse{Error: "addresses needs to be a non-empty array"})
		return
	}
	if len(req.Addresses) > s.maxBulk {
		writeJSON(w, http.StatusBadRequest, PubKeyResponse{
			Error: fmt.Sprintf("%s: at most %d addresses", fault.ErrTooManyItems, s.maxBulk),
		})
		return
	}

	results := make([]PubKeyResponse, len(req.Addresses))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(bulkConcurrency)
	for i, addr := range req.Addresses {
		g.Go(func() error {
			res, err := s.resolver.ResolvePublicKey(ctx, addr)
			if err != nil {
				return fmt.Errorf("%s: %w", addr, err)
			}
			results[i] = pubKeyPayload(addr, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		status := s.statusFor(r, err)
		writeJSON(w, status, PubKeyResponse{Success: false, Error: clientMessage(status, err)})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func pubKeyPayload(addr string, res resolver.Result) PubKeyResponse {
	switch res.Status {
	case resolver.StatusFound:
		return PubKeyResponse{Success: true, Address: addr, PublicKey: res.Value}
	case resolver.StatusNoHistory:
		return PubKeyResponse{Success: false, Address: addr, Error: "no transaction history"}
	default:
		return PubKeyResponse{Success: false, Address: addr, Error: "public key not found"}
	}
}

// handleMutableData serves GET /v1/slp/mutable/{documentHash}.
func (s *Server) handleMutableData(w http.ResponseWriter, r *http.Request) {
	s.writeMutableData(w, r, r.PathValue("documentHash"))
}

// handleTokenMutableData serves GET /v1/slp/mutable/token/{tokenId}.
func (s *Server) handleTokenMutableData(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "token indexer not configured"})
		return
	}
	tokenID, err := types.ParseTokenID(r.PathValue("tokenId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	docHash, err := s.tokens.TokenDocumentHash(r.Context(), tokenID)
	switch {
	case errors.Is(err, indexer.ErrTokenNotFound):
		writeJSON(w, http.StatusOK, MutableDataResponse{})
		return
	case err != nil:
		status := s.statusFor(r, err)
		writeJSON(w, status, ErrorResponse{Error: clientMessage(status, err)})
		return
	case docHash == "":
		writeJSON(w, http.StatusOK, MutableDataResponse{})
		return
	}
	s.writeMutableData(w, r, docHash)
}

func (s *Server) writeMutableData(w http.ResponseWriter, r *http.Request, documentHash string) {
	res, err := s.resolver.ResolveMutableData(r.Context(), documentHash)
	if err != nil {
		if fault.IsErrMalformed(err) {
			writeJSON(w, http.StatusOK, MutableDataResponse{})
			return
		}
		status := s.statusFor(r, err)
		writeJSON(w, status, ErrorResponse{Error: clientMessage(status, err)})
		return
	}
	writeJSON(w, http.StatusOK, MutableDataResponse{MutableData: res.Value})
}

// handleHealth serves GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// statusFor maps a resolution error to an HTTP status and logs faults.
func (s *Server) statusFor(r *http.Request, err error) int {
	var status int
	switch {
	case fault.IsErrInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		// Client went away.
		status = http.StatusServiceUnavailable
	case fault.IsErrTimeout(err):
		status = http.StatusGatewayTimeout
	case fault.IsErrTransient(err):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	s.logger.Warn().
		Err(err).
		Str("req", resolver.RequestID(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")
	return status
}

// clientMessage hides backend details behind 5xx statuses.
func clientMessage(status int, err error) string {
	switch status {
	case http.StatusGatewayTimeout:
		return "upstream timeout"
	case http.StatusServiceUnavailable:
		return "upstream service unavailable"
	case http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
