package handler

import (
	"context"
	"net/http"

	"github.com/cardvault/card-service/internal/models"
	"github.com/cardvault/card-service/internal/service"
)

func (h *Handler) toViews(cards []*models.Card) []*models.CardView {
	views := make([]*models.CardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, h.cards.ToDisplay(card))
	}
	return views
}

func (h *Handler) lifecycle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, meta service.RequestMeta, cardID, userID int64) error) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}
	cardID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), requestMeta(r), cardID, userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) adminLifecycle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, meta service.RequestMeta, cardID int64) error) {
	cardID, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid card id", http.StatusBadRequest)
		return
	}
	if err := op(r.Context(), requestMeta(r), cardID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AdminListCards returns cards across all users, filtered and paginated.
func (h *Handler) AdminListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.ListCards(r.Context(), cardFilterFromQuery(r, true), pageFromQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toViews(cards))
}

// AdminBlockCard blocks any card.
func (h *Handler) AdminBlockCard(w http.ResponseWriter, r *http.Request) {
	h.adminLifecycle(w, r, h.cards.BlockCardByAdmin)
}

// AdminActivateCard reactivates any blocked, unexpired card.
func (h *Handler) AdminActivateCard(w http.ResponseWriter, r *http.Request) {
	h.adminLifecycle(w, r, h.cards.ActivateCardByAdmin)
}

// AdminDeleteCard removes a card permanently.
func (h *Handler) AdminDeleteCard(w http.ResponseWriter, r *http.Request) {
	h.adminLifecycle(w, r, h.cards.DeleteCard)
}
