package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"creditchain/core"
	"creditchain/core/state"
	"creditchain/core/tx"
	"creditchain/core/types"
	"creditchain/crypto"
	"creditchain/native/bnpl"
)

// Server exposes the read-only query surface and the command submission
// endpoint over HTTP.
type Server struct {
	processor *core.Processor
	manager   *state.Manager
	asset     types.Identity
	log       *slog.Logger
}

// NewServer builds a server around the processor and its state manager.
func NewServer(processor *core.Processor, manager *state.Manager, asset types.Identity, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{processor: processor, manager: manager, asset: asset, log: log}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Post("/tx", s.handleSubmit)
		v1.Get("/score/{address}", s.handleScore)
		v1.Get("/collateral/{address}", s.handleCollateral)
		v1.Get("/authorization/{address}", s.handleAuthorization)
		v1.Get("/loan/{id}", s.handleLoan)
		v1.Get("/yield/{address}", s.handleYield)
		v1.Get("/wallet/{address}", s.handleWallet)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http request",
			"requestId", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func identityParam(r *http.Request, name string) (types.Identity, error) {
	var id types.Identity
	addr, err := crypto.DecodeAddress(chi.URLParam(r, name))
	if err != nil {
		return id, err
	}
	copy(id[:], addr.Bytes())
	return id, nil
}

func encodeIdentity(id types.Identity) string {
	return crypto.MustNewAddress(crypto.UserPrefix, id[:]).String()
}

// handleSubmit accepts a signed envelope and applies it.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	env := &tx.Envelope{}
	if err := json.NewDecoder(r.Body).Decode(env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.processor.Apply(env)
	if err != nil && !errors.Is(err, bnpl.ErrCollateralExhausted) {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	response := map[string]any{"result": result}
	if err != nil {
		response["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	owner, err := identityParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	profile, err := s.manager.View().GetScoreProfile(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, errors.New("score profile not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":       encodeIdentity(profile.Owner),
		"score":       profile.Score,
		"onTime":      profile.OnTime,
		"late":        profile.Late,
		"defaults":    profile.Defaults,
		"totalLoans":  profile.TotalLoans,
		"lastUpdated": profile.LastUpdated,
	})
}

func (s *Server) handleCollateral(w http.ResponseWriter, r *http.Request) {
	owner, err := identityParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	position, err := s.manager.View().GetCollateralPosition(owner, s.asset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if position == nil {
		writeError(w, http.StatusNotFound, errors.New("collateral position not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":        encodeIdentity(position.Owner),
		"amountLocked": position.AmountLocked,
		"status":       uint8(position.Status),
		"lockExpiry":   position.LockExpiry,
		"createdAt":    position.CreatedAt,
		"lastUpdate":   position.LastUpdate,
	})
}

func (s *Server) handleAuthorization(w http.ResponseWriter, r *http.Request) {
	owner, err := identityParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	auth, err := s.manager.View().GetAuthorization(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if auth == nil {
		writeError(w, http.StatusNotFound, errors.New("authorization not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":      encodeIdentity(auth.Owner),
		"authorized": auth.Authorized,
		"used":       auth.Used,
		"remaining":  auth.Remaining(),
		"active":     auth.Active,
		"createdAt":  auth.CreatedAt,
		"expiresAt":  auth.ExpiresAt,
	})
}

func (s *Server) handleLoan(w http.ResponseWriter, r *http.Request) {
	raw, err := hex.DecodeString(chi.URLParam(r, "id"))
	if err != nil || len(raw) != 32 {
		writeError(w, http.StatusBadRequest, errors.New("loan id must be 32 hex-encoded bytes"))
		return
	}
	var id [32]byte
	copy(id[:], raw)

	loan, err := s.manager.View().GetLoan(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if loan == nil {
		writeError(w, http.StatusNotFound, errors.New("loan not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"borrower":       encodeIdentity(loan.Borrower),
		"merchant":       encodeIdentity(loan.Merchant),
		"principal":      loan.Principal,
		"installments":   loan.Installments,
		"paid":           loan.Paid,
		"nextPaymentDue": loan.NextPaymentDue,
		"intervalDays":   loan.IntervalDays,
		"perInstallment": loan.PerInstallment,
		"status":         uint8(loan.Status),
		"feeBps":         loan.FeeBps,
		"aprBps":         loan.AprBps,
	})
}

func (s *Server) handleYield(w http.ResponseWriter, r *http.Request) {
	owner, err := identityParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	position, err := s.manager.View().GetYieldPosition(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if position == nil {
		writeError(w, http.StatusNotFound, errors.New("yield position not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":        encodeIdentity(position.Owner),
		"strategy":     uint8(position.Strategy),
		"autoReinvest": position.AutoReinvest,
		"totalEarned":  position.TotalEarned,
		"totalClaimed": position.TotalClaimed,
		"claimable":    position.Claimable(),
		"lastClaimAt":  position.LastClaimAt,
	})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	owner, err := identityParam(r, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	wallet, err := s.manager.View().GetWallet(owner)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if wallet == nil {
		writeError(w, http.StatusNotFound, errors.New("wallet not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     encodeIdentity(wallet.Owner),
		"active":    wallet.Active,
		"cardTier":  uint8(wallet.CardTier),
		"createdAt": wallet.CreatedAt,
	})
}
