package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
	"envelope/internal/storage"
)

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request, userID int64) {
	groups, err := s.ledger.ListGroups(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createGroupRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	created, err := s.ledger.CreateGroup(r.Context(), core.CategoryGroup{
		UserID:    userID,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(created))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteGroup(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request, userID int64) {
	categories, err := s.ledger.ListCategories(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createCategoryRequest struct {
	Name             string           `json:"name"`
	GroupID          *int64           `json:"group_id"`
	SortOrder        int              `json:"sort_order"`
	RolloverStrategy string           `json:"rollover_strategy"`
	SweepTargetID    *int64           `json:"sweep_target_id"`
	GoalAmount       *decimal.Decimal `json:"goal_amount"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	created, err := s.ledger.CreateCategory(r.Context(), core.Category{
		UserID:           userID,
		GroupID:          req.GroupID,
		Name:             req.Name,
		SortOrder:        req.SortOrder,
		RolloverStrategy: core.RolloverStrategy(req.RolloverStrategy),
		SweepTargetID:    req.SweepTargetID,
		GoalAmount:       req.GoalAmount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, userID int64) {
	accounts, err := s.ledger.ListAccounts(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

type createAccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	created, err := s.ledger.CreateAccount(r.Context(), core.Account{
		UserID: userID,
		Name:   req.Name,
		Type:   req.Type,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID int64) {
	filter, err := transactionFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	transactions, err := s.ledger.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		resp = append(resp, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// transactionFilter reads optional list filters from query parameters.
func transactionFilter(r *http.Request) (storage.TransactionFilter, error) {
	var f storage.TransactionFilter
	q := r.URL.Query()

	for name, dst := range map[string]**int64{"account_id": &f.AccountID, "category_id": &f.CategoryID} {
		if raw := strings.TrimSpace(q.Get(name)); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return f, fmt.Errorf("%s filter %q: %w", name, raw, core.ErrInvalidReference)
			}
			*dst = &id
		}
	}

	if m := strings.TrimSpace(q.Get("month")); m != "" {
		month, err := core.ParseMonth(m)
		if err != nil {
			return f, err
		}
		f.From = month.StartDate()
		f.To = month.EndDate()
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			f.Limit = n
		}
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			f.Offset = n
		}
	}

	return f, nil
}

type createTransactionRequest struct {
	AccountID         int64           `json:"account_id"`
	CategoryID        *int64          `json:"category_id"`
	Date              string          `json:"date"`
	Payee             string          `json:"payee"`
	Memo              string          `json:"memo"`
	Amount            decimal.Decimal `json:"amount"`
	TransferAccountID *int64          `json:"transfer_account_id"`
	Cleared           bool            `json:"cleared"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	created, err := s.ledger.CreateTransaction(r.Context(), core.Transaction{
		UserID:            userID,
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		Date:              req.Date,
		Payee:             req.Payee,
		Memo:              req.Memo,
		Amount:            req.Amount,
		TransferAccountID: req.TransferAccountID,
		Cleared:           req.Cleared,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), userID, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateUser(userID)
	w.WriteHeader(http.StatusNoContent)
}
