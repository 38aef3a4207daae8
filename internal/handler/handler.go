// Package handler содержит HTTP-обработчики административной консоли.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/food-admin/internal/legacyid"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/repository"
	"github.com/mmeshcher/food-admin/internal/store"
	"github.com/mmeshcher/food-admin/internal/validation"
)

const (
	maxUploadSize       = 16 << 20
	defaultHistoryLimit = 20
)

// Catalog определяет операции каталога, доступные консоли.
type Catalog interface {
	Snapshot() []model.FoodItem
	List(ctx context.Context) error
	Add(ctx context.Context, draft *model.Draft, reset store.FormResetter) error
	Remove(ctx context.Context, id string, confirm store.Confirmer) error
}

// Orders определяет операции над заказами, доступные консоли.
type Orders interface {
	Snapshot() []model.Order
	List(ctx context.Context) error
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	History(ctx context.Context, orderID string, limit int) ([]repository.StatusChange, error)
}

// Handler реализует HTTP-обработчики административной консоли.
type Handler struct {
	catalog Catalog
	orders  Orders
	logger  *zap.Logger
	metrics http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов. metrics может быть nil.
func NewHandler(c Catalog, o Orders, logger *zap.Logger, metrics http.Handler) *Handler {
	return &Handler{
		catalog: c,
		orders:  o,
		logger:  logger,
		metrics: metrics,
	}
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

// writeError переводит ошибку хранилища в HTTP-статус.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		verr   *validation.Error
		rej    *remote.RemoteRejection
		netErr *remote.NetworkError
		code   int
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
		return
	case errors.Is(err, store.ErrNotConfirmed):
		code = http.StatusPreconditionRequired
	case errors.Is(err, store.ErrAlreadyInProgress):
		code = http.StatusConflict
	case errors.As(err, &rej):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: rej.Message})
		return
	case errors.As(err, &netErr):
		code = http.StatusBadGateway
	default:
		h.logger.Error("unexpected store error", zap.Error(err))
		code = http.StatusInternalServerError
	}

	http.Error(w, http.StatusText(code), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type foodResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    model.Category  `json:"category"`
	Image       string          `json:"image"`
}

// GetFoods возвращает текущий список блюд из локального кэша.
func (h *Handler) GetFoods(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Snapshot()
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]foodResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, foodResponse{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
			Category:    it.Category,
			Image:       it.Image,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshFoods загружает каталог заново и возвращает обновлённый список.
func (h *Handler) RefreshFoods(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.List(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.GetFoods(w, r)
}

// GetCategories возвращает допустимые категории блюд.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Categories())
}

// AddFood принимает форму добавления блюда в формате multipart.
func (h *Handler) AddFood(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	draft := model.NewDraft()
	draft.Name = r.FormValue("name")
	draft.Description = r.FormValue("description")
	draft.Price = r.FormValue("price")
	if c := r.FormValue("category"); c != "" {
		draft.Category = model.Category(c)
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		draft.Image = &model.ImagePayload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.catalog.Add(r.Context(), draft, nil); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// RemoveFood удаляет блюдо. Без параметра confirm=true удаление не выполняется.
func (h *Handler) RemoveFood(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := h.catalog.Remove(r.Context(), id, store.Approved(confirmed)); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type orderResponse struct {
	ID          string            `json:"id"`
	Items       []model.LineItem  `json:"items"`
	Address     model.Address     `json:"address"`
	Amount      decimal.Decimal   `json:"amount"`
	PaymentMode model.PaymentMode `json:"payment_mode"`
	Paid        bool              `json:"paid"`
	Status      model.OrderStatus `json:"status"`
	CreatedAt   string            `json:"created_at"`
}

// GetOrders возвращает заказы из локального кэша, от новых к старым.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.orders.Snapshot()
	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, orderResponse{
			ID:          o.ID,
			Items:       o.Items,
			Address:     o.Address,
			Amount:      o.Amount,
			PaymentMode: o.PaymentMode,
			Paid:        o.Payment,
			Status:      o.Status,
			CreatedAt:   legacyid.Format(o.ID, o.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshOrders запускает внеочередную синхронизацию заказов.
func (h *Handler) RefreshOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.List(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.GetOrders(w, r)
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus меняет статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type statusChangeResponse struct {
	Status    string `json:"status"`
	Accepted  bool   `json:"accepted"`
	Message   string `json:"message,omitempty"`
	CreatedAt string `json:"created_at"`
}

// GetOrderHistory возвращает историю отправленных изменений статуса заказа.
func (h *Handler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		limit = n
	}

	changes, err := h.orders.History(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("get order history error", zap.Error(err), zap.String("order", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(changes) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]statusChangeResponse, 0, len(changes))
	for _, c := range changes {
		resp = append(resp, statusChangeResponse{
			Status:    c.Status,
			Accepted:  c.Accepted,
			Message:   c.Message,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
