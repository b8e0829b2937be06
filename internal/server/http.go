package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jordan-public/circuit-breaker-token/internal/breaker"
	"github.com/jordan-public/circuit-breaker-token/internal/core"
	"github.com/jordan-public/circuit-breaker-token/internal/custody"
	"github.com/jordan-public/circuit-breaker-token/internal/observability"
	"github.com/jordan-public/circuit-breaker-token/internal/query"
	"github.com/jordan-public/circuit-breaker-token/internal/target"
	"github.com/jordan-public/circuit-breaker-token/internal/token"
)

// HTTPServer is the operational HTTP/JSON API: token operations, liquidation
// lifecycle, history queries, and the admin surface.
type HTTPServer struct {
	engine  *core.Engine
	queries *query.Service
	targets *target.Registry
	faucet  *custody.InMemoryAsset
	health  *observability.HealthChecker
	metrics *observability.Metrics

	httpServer *http.Server
}

// Deps holds the HTTP server's collaborators. Queries and Faucet are
// optional: endpoints depending on them return 503 when absent.
type Deps struct {
	Engine  *core.Engine
	Queries *query.Service
	Targets *target.Registry
	Faucet  *custody.InMemoryAsset
	Health  *observability.HealthChecker
	Metrics *observability.Metrics
}

func NewHTTPServer(addr string, deps Deps) *HTTPServer {
	s := &HTTPServer{
		engine:  deps.Engine,
		queries: deps.Queries,
		targets: deps.Targets,
		faucet:  deps.Faucet,
		health:  deps.Health,
		metrics: deps.Metrics,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health.LivenessHandler)
	r.Get("/readyz", s.health.ReadinessHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/deposit", s.handleDeposit)
		r.Post("/withdraw", s.handleWithdraw)
		r.Post("/approve", s.handleApprove)
		r.Post("/transfer", s.handleTransfer)
		r.Post("/transfer-from", s.handleTransferFrom)

		r.Post("/liquidations/initiate", s.handleInitiate)
		r.Get("/liquidations/{principal}", s.handleGetRecord)
		r.Get("/liquidations/{principal}/amount", s.handleGetAmount)

		r.Get("/balances/{principal}", s.handleGetBalance)
		r.Get("/allowance", s.handleGetAllowance)
		r.Get("/supply", s.handleGetSupply)

		r.Get("/history/{principal}", s.handlePrincipalHistory)
		r.Get("/history/liquidations", s.handleLiquidationHistory)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/tick/advance", s.handleAdvanceTick)
			r.Post("/target", s.handleSetTarget)
			r.Post("/faucet", s.handleFaucet)
			r.Get("/integrity", s.handleIntegrity)
		})
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root router, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled (blocking).
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// --- token operations ---

type amountRequest struct {
	Principal uuid.UUID `json:"principal"`
	Amount    int64     `json:"amount"`
}

func (s *HTTPServer) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.Deposit(req.Principal, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal": req.Principal,
		"balance":   s.engine.BalanceOf(req.Principal),
	})
}

func (s *HTTPServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.Withdraw(req.Principal, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal": req.Principal,
		"balance":   s.engine.BalanceOf(req.Principal),
	})
}

type approveRequest struct {
	Owner   uuid.UUID `json:"owner"`
	Spender uuid.UUID `json:"spender"`
	Amount  int64     `json:"amount"`
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.Approve(req.Owner, req.Spender, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":     req.Owner,
		"spender":   req.Spender,
		"allowance": s.engine.Allowance(req.Owner, req.Spender),
	})
}

type transferRequest struct {
	From   uuid.UUID `json:"from"`
	To     uuid.UUID `json:"to"`
	Amount int64     `json:"amount"`
}

func (s *HTTPServer) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.Transfer(req.From, req.To, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

type transferFromRequest struct {
	Spender   uuid.UUID `json:"spender"`
	Owner     uuid.UUID `json:"owner"`
	Recipient uuid.UUID `json:"recipient"`
	Amount    int64     `json:"amount"`
}

func (s *HTTPServer) handleTransferFrom(w http.ResponseWriter, r *http.Request) {
	var req transferFromRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.TransferFrom(req.Spender, req.Owner, req.Recipient, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// --- liquidation lifecycle ---

type initiateRequest struct {
	Principal uuid.UUID `json:"principal"`
}

func (s *HTTPServer) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.engine.Initiate(req.Principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse(req.Principal, rec, s.engine.CurrentTick()))
}

func (s *HTTPServer) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := pathUUID(w, r, "principal")
	if !ok {
		return
	}
	rec, found := s.engine.RecordOf(principal)
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "no liquidation record for principal",
		})
		return
	}
	writeJSON(w, http.StatusOK, recordResponse(principal, rec, s.engine.CurrentTick()))
}

func (s *HTTPServer) handleGetAmount(w http.ResponseWriter, r *http.Request) {
	principal, ok := pathUUID(w, r, "principal")
	if !ok {
		return
	}
	quote := s.engine.LiquidatableAmount(principal)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal": principal,
		"pct":       quote.Pct,
		"amount":    quote.Amount,
		"tick":      s.engine.CurrentTick(),
	})
}

func recordResponse(principal uuid.UUID, rec breaker.Record, now breaker.Tick) map[string]interface{} {
	return map[string]interface{}{
		"principal":     principal,
		"blocked_until": rec.BlockedUntil,
		"window_end":    rec.WindowEnd,
		"snapshot":      rec.Snapshot,
		"phase":         rec.PhaseAt(now).String(),
		"tick":          now,
	}
}

// --- read endpoints ---

func (s *HTTPServer) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	principal, ok := pathUUID(w, r, "principal")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal": principal,
		"balance":   s.engine.BalanceOf(principal),
	})
}

func (s *HTTPServer) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	owner, err := uuid.Parse(r.URL.Query().Get("owner"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid owner"})
		return
	}
	spender, err := uuid.Parse(r.URL.Query().Get("spender"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid spender"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owner":     owner,
		"spender":   spender,
		"allowance": s.engine.Allowance(owner, spender),
	})
}

func (s *HTTPServer) handleGetSupply(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_supply": s.engine.TotalSupply(),
		"custody_held": s.engine.CustodyHeld(),
	})
}

// --- history ---

func (s *HTTPServer) handlePrincipalHistory(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "history unavailable"})
		return
	}
	principal, ok := pathUUID(w, r, "principal")
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.queries.PrincipalHistory(r.Context(), principal, pageLimit(r), beforeCursor(r))
	s.observeQuery("principal_history", start, err)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleLiquidationHistory(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "history unavailable"})
		return
	}

	var principal *uuid.UUID
	if raw := r.URL.Query().Get("principal"); raw != "" {
		p, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid principal"})
			return
		}
		principal = &p
	}

	start := time.Now()
	resp, err := s.queries.LiquidationHistory(r.Context(), principal, pageLimit(r), beforeCursor(r))
	s.observeQuery("liquidation_history", start, err)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "query failed"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- admin ---

func (s *HTTPServer) handleAdvanceTick(w http.ResponseWriter, r *http.Request) {
	tick := s.engine.AdvanceTick()
	writeJSON(w, http.StatusOK, map[string]interface{}{"tick": tick})
}

type setTargetRequest struct {
	Principal    uuid.UUID `json:"principal"`
	Liquidatable bool      `json:"liquidatable"`
	Collateral   int64     `json:"collateral"`
}

func (s *HTTPServer) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req setTargetRequest
	if !decode(w, r, &req) {
		return
	}
	s.targets.SetStatus(req.Principal, req.Liquidatable, req.Collateral)
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (s *HTTPServer) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if s.faucet == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "faucet unavailable"})
		return
	}
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"error": "amount must be positive"})
		return
	}
	s.faucet.Credit(req.Principal, req.Amount)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal": req.Principal,
		"balance":   s.faucet.BalanceOf(req.Principal),
	})
}

func (s *HTTPServer) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	if s.queries == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "integrity check unavailable"})
		return
	}
	report, err := s.queries.VerifyIntegrity(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "verification failed"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// --- helpers ---

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "malformed request body"})
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func pageLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func beforeCursor(r *http.Request) *int64 {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		return nil
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq <= 0 {
		return nil
	}
	return &seq
}

func (s *HTTPServer) observeQuery(endpoint string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.QueryErrors.WithLabelValues(endpoint, "internal").Inc()
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses. Liquidation failures
// carry their taxonomy class so clients can branch without string matching.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, breaker.ErrNotLiquidatable), errors.Is(err, breaker.ErrAlreadyInitiated):
		status = http.StatusConflict
	case errors.Is(err, breaker.ErrInCooldown), errors.Is(err, breaker.ErrWindowExpired):
		status = http.StatusLocked
	case errors.Is(err, breaker.ErrExceedsLimit):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, breaker.ErrMustInitiateFirst):
		status = http.StatusPreconditionFailed
	case errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrNonPositiveAmount),
		errors.Is(err, custody.ErrNonPositiveAmount):
		status = http.StatusUnprocessableEntity
	}

	body := map[string]interface{}{"error": err.Error()}
	if class := breaker.Classify(err); class != breaker.ClassUnknown {
		body["class"] = class.String()
	}
	writeJSON(w, status, body)
}
