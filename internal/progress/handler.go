package progress

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/lingua-prep/backend/internal/models"
)

// QuestAssigner tops up a user's active quest slate. Implemented by
// the questgen package; the handler calls it lazily on quest reads so
// a user always sees a fresh set without any background timer.
type QuestAssigner interface {
	EnsureQuests(userID int64) error
}

type Handler struct {
	controller *Controller
	assigner   QuestAssigner
}

func NewHandler(controller *Controller, assigner QuestAssigner) *Handler {
	return &Handler{controller: controller, assigner: assigner}
}

func getUserID(r *http.Request) (int64, bool) {
	uid, ok := r.Context().Value("user_id").(int64)
	return uid, ok
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	resp, err := h.controller.LoadProgress(userID)
	if err != nil {
		writeError(w, err, "Failed to load progress")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.CompleteLessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.controller.CompleteLesson(userID, req)
	if err != nil {
		writeError(w, err, "Failed to complete lesson")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ── Shop ────────────────────────────────────────────────

func (h *Handler) GetShopItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ShopItemsResponse{Items: CatalogItems()})
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.ItemID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "item_id is required"})
		return
	}

	result, err := h.controller.PurchaseItem(userID, req.ItemID)
	if err != nil {
		writeError(w, err, "Failed to complete purchase")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ── Quests ──────────────────────────────────────────────

func (h *Handler) GetQuests(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	if h.assigner != nil {
		if err := h.assigner.EnsureQuests(userID); err != nil {
			log.Printf("[progress] quest assignment failed for user %d: %v", userID, err)
		}
	}

	quests, err := h.controller.ListQuests(userID)
	if err != nil {
		writeError(w, err, "Failed to list quests")
		return
	}
	writeJSON(w, http.StatusOK, models.QuestsResponse{Quests: quests})
}

func (h *Handler) QuestProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	questID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid quest ID"})
		return
	}

	var req models.QuestProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.controller.ApplyQuestProgress(userID, questID, req)
	if err != nil {
		writeError(w, err, "Failed to update quest progress")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	questID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid quest ID"})
		return
	}

	reward, err := h.controller.CompleteQuest(userID, questID)
	if err != nil {
		writeError(w, err, "Failed to complete quest")
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

func (h *Handler) AbandonQuest(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}
	questID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid quest ID"})
		return
	}

	if err := h.controller.AbandonQuest(userID, questID); err != nil {
		writeError(w, err, "Failed to abandon quest")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ── Helpers ─────────────────────────────────────────────

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[key], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeError maps the sentinel error taxonomy onto HTTP statuses.
// Internal errors get the generic fallback message so database detail
// never reaches the client.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[progress] internal error: %v", err)
		msg = fallback
	}
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrQuestNotReady), errors.Is(err, ErrAlreadyCompleted), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
