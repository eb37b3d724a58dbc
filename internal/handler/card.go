package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cardvault/card-service/internal/models"
	"github.com/shopspring/decimal"
)

type createCardRequest struct {
	CardHolder string `json:"card_holder"`
}

type transferRequest struct {
	FromCardID int64           `json:"from_card_id"`
	ToCardID   int64           `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func cardFilterFromQuery(r *http.Request, withUser bool) models.CardFilter {
	q := r.URL.Query()
	filter := models.CardFilter{}
	if s := q.Get("status"); s != "" {
		status := models.CardStatus(s)
		filter.Status = &status
	}
	if s := q.Get("min_balance"); s != "" {
		if v, err := decimal.NewFromString(s); err == nil {
			filter.MinBalance = &v
		}
	}
	if s := q.Get("max_balance"); s != "" {
		if v, err := decimal.NewFromString(s); err == nil {
			filter.MaxBalance = &v
		}
	}
	if withUser {
		if s := q.Get("user_id"); s != "" {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				filter.UserID = &v
			}
		}
	}
	return filter
}

// CreateCard issues a new card for the authenticated user.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardHolder == "" {
		http.Error(w, "card_holder is required", http.StatusBadRequest)
		return
	}

	card, err := h.cards.IssueCard(r.Context(), requestMeta(r), req.CardHolder, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, h.cards.ToDisplay(card))
}

// ListCards returns the authenticated user's cards, filtered and paginated.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	cards, err := h.cards.ListUserCards(r.Context(), userID, cardFilterFromQuery(r, false), pageFromQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toViews(cards))
}

// GetCard returns one of the authenticated user's cards.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}

	card, err := h.cards.GetUserCard(r.Context(), cardID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.cards.ToDisplay(card))
}

// Transfer moves funds between two of the authenticated user's cards.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.cards.Transfer(r.Context(), requestMeta(r), req.FromCardID, req.ToCardID, req.Amount, userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// BlockCard blocks one of the authenticated user's cards.
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.cards.BlockCard)
}

// ActivateCard reactivates one of the authenticated user's blocked cards.
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.cards.ActivateCard)
}

// TotalBalance returns the sum over the authenticated user's cards.
func (h *Handler) TotalBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	total, err := h.cards.TotalBalance(r.Context(), requestMeta(r), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"total_balance": total})
}
