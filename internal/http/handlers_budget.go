package http

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request, userID int64) {
	m, err := monthQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := s.cacheKey(userID, m)
	if cached, found := s.budgetCache.Get(key); found {
		slog.DebugContext(r.Context(), "Budget cache hit", "user_id", userID, "month", m.String())
		writeJSON(w, http.StatusOK, cached)
		return
	}

	groups, err := s.budget.CategoryAvailability(r.Context(), userID, m)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := toBudgetResponse(m, groups)
	s.budgetCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request, userID int64) {
	m, err := monthQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := s.cacheKey(userID, m)
	if cached, found := s.summaryCache.Get(key); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "user_id", userID, "month", m.String())
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.budget.BudgetSummary(r.Context(), userID, m)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := toSummaryResponse(m, summary)
	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

type assignRequest struct {
	CategoryID int64           `json:"category_id"`
	Month      string          `json:"month"`
	Assigned   decimal.Decimal `json:"assigned"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request, userID int64) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	m, err := core.ParseMonth(req.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	alloc, err := s.budget.SetAssigned(r.Context(), userID, req.CategoryID, m, req.Assigned)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, allocationResponse{
		ID:         alloc.ID,
		CategoryID: alloc.CategoryID,
		Month:      alloc.Month.String(),
		Assigned:   alloc.Assigned,
	})
}

type rolloverRequest struct {
	Strategy      string `json:"strategy"`
	SweepTargetID *int64 `json:"sweep_target_id"`
}

func (s *Server) handleSetRollover(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req rolloverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	updated, err := s.ledger.SetRolloverPolicy(r.Context(), userID, id, core.RolloverStrategy(req.Strategy), req.SweepTargetID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateUser(userID)
	writeJSON(w, http.StatusOK, toCategoryResponse(updated))
}
