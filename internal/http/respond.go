package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"envelope/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

type groupResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type categoryResponse struct {
	ID               int64            `json:"id"`
	GroupID          *int64           `json:"group_id,omitempty"`
	Name             string           `json:"name"`
	SortOrder        int              `json:"sort_order"`
	RolloverStrategy string           `json:"rollover_strategy"`
	SweepTargetID    *int64           `json:"sweep_target_id,omitempty"`
	GoalAmount       *decimal.Decimal `json:"goal_amount,omitempty"`
}

type accountResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type transactionResponse struct {
	ID                int64           `json:"id"`
	AccountID         int64           `json:"account_id"`
	CategoryID        *int64          `json:"category_id,omitempty"`
	Date              string          `json:"date"`
	Payee             string          `json:"payee,omitempty"`
	Memo              string          `json:"memo,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	TransferAccountID *int64          `json:"transfer_account_id,omitempty"`
	Cleared           bool            `json:"cleared"`
}

type allocationResponse struct {
	ID         int64           `json:"id"`
	CategoryID int64           `json:"category_id"`
	Month      string          `json:"month"`
	Assigned   decimal.Decimal `json:"assigned"`
}

type categoryBudgetResponse struct {
	categoryResponse
	Assigned     decimal.Decimal  `json:"assigned"`
	Activity     decimal.Decimal  `json:"activity"`
	Available    decimal.Decimal  `json:"available"`
	GoalProgress *decimal.Decimal `json:"goal_progress,omitempty"`
}

type groupBudgetResponse struct {
	Group      *groupResponse           `json:"group,omitempty"`
	Categories []categoryBudgetResponse `json:"categories"`
}

type budgetResponse struct {
	Month  string                `json:"month"`
	Groups []groupBudgetResponse `json:"groups"`
}

type summaryResponse struct {
	Month         string          `json:"month"`
	ToBeBudgeted  decimal.Decimal `json:"to_be_budgeted"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalAssigned decimal.Decimal `json:"total_assigned"`
	MonthIncome   decimal.Decimal `json:"month_income"`
	MonthExpenses decimal.Decimal `json:"month_expenses"`
	MonthAssigned decimal.Decimal `json:"month_assigned"`
}

func toGroupResponse(g core.CategoryGroup) groupResponse {
	return groupResponse{ID: g.ID, Name: g.Name, SortOrder: g.SortOrder}
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:               c.ID,
		GroupID:          c.GroupID,
		Name:             c.Name,
		SortOrder:        c.SortOrder,
		RolloverStrategy: string(c.RolloverStrategy),
		SweepTargetID:    c.SweepTargetID,
		GoalAmount:       c.GoalAmount,
	}
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, Type: a.Type}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		CategoryID:        t.CategoryID,
		Date:              t.Date,
		Payee:             t.Payee,
		Memo:              t.Memo,
		Amount:            t.Amount,
		TransferAccountID: t.TransferAccountID,
		Cleared:           t.Cleared,
	}
}

func toBudgetResponse(m core.Month, groups []core.GroupBudget) budgetResponse {
	resp := budgetResponse{Month: m.String(), Groups: []groupBudgetResponse{}}
	for _, g := range groups {
		gb := groupBudgetResponse{Categories: []categoryBudgetResponse{}}
		if g.Group.ID != 0 {
			gr := toGroupResponse(g.Group)
			gb.Group = &gr
		}
		for _, cb := range g.Categories {
			gb.Categories = append(gb.Categories, categoryBudgetResponse{
				categoryResponse: toCategoryResponse(cb.Category),
				Assigned:         cb.Assigned,
				Activity:         cb.Activity,
				Available:        cb.Available,
				GoalProgress:     cb.GoalProgress,
			})
		}
		resp.Groups = append(resp.Groups, gb)
	}
	return resp
}

func toSummaryResponse(m core.Month, s core.BudgetSummary) summaryResponse {
	return summaryResponse{
		Month:         m.String(),
		ToBeBudgeted:  s.ToBeBudgeted,
		TotalIncome:   s.TotalIncome,
		TotalAssigned: s.TotalAssigned,
		MonthIncome:   s.MonthIncome,
		MonthExpenses: s.MonthExpenses,
		MonthAssigned: s.MonthAssigned,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

// writeError maps domain sentinels to HTTP statuses. Storage failures stay
// behind a generic message so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidStrategy),
		errors.Is(err, core.ErrInvalidReference),
		errors.Is(err, core.ErrEmptyName):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
