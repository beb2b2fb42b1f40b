package presentation

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/application"
	"github.com/nearkart/nearkart-server/internal/domain"
	"github.com/nearkart/nearkart-server/internal/presentation/helpers"
)

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type OrdersHandler struct {
	svc  *application.OrdersService
	cart *application.CartService
	db   Pinger
}

func NewOrdersHandler(svc *application.OrdersService, cart *application.CartService, db Pinger) *OrdersHandler {
	return &OrdersHandler{svc: svc, cart: cart, db: db}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api/order", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/cash-on-delivery", h.CashOnDelivery)
		r.Post("/checkout", h.Checkout)
		r.Post("/verify-payment", h.VerifyPayment)
		r.Get("/order-list", h.ListOrders)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/all-orders", h.AdminOrders)
			r.Put("/order-status", h.UpdateStatus)
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/", h.ListCart)
		r.Post("/", h.AddToCart)
	})
}

type cashOnDeliveryRequest struct {
	OrderID   string            `json:"orderId"`
	ListItems []domain.CartItem `json:"list_items"`
	AddressID uuid.UUID         `json:"addressId"`
	SubTotal  float64           `json:"subTotalAmt"`
	Total     float64           `json:"totalAmt"`
}

func (h *OrdersHandler) CashOnDelivery(w http.ResponseWriter, r *http.Request) {
	var req cashOnDeliveryRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	placed, err := h.svc.PlaceCashOnDelivery(r.Context(), UserID(r.Context()), application.CheckoutInput{
		OrderUID:  req.OrderID,
		AddressID: req.AddressID,
		Items:     req.ListItems,
		SubTotal:  req.SubTotal,
		Total:     req.Total,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writePlaced(w, placed, "Order successfully", "Order already placed successfully")
}

type checkoutRequest struct {
	ListItems []domain.CartItem `json:"list_items"`
	AddressID uuid.UUID         `json:"addressId"`
	SubTotal  float64           `json:"subTotalAmt"`
	Total     float64           `json:"totalAmt"`
}

func (h *OrdersHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	session, err := h.svc.Checkout(r.Context(), UserID(r.Context()), application.CheckoutInput{
		AddressID: req.AddressID,
		Items:     req.ListItems,
		SubTotal:  req.SubTotal,
		Total:     req.Total,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"order_id": session.OrderID,
		"amount":   session.Amount,
		"currency": session.Currency,
		"key_id":   session.KeyID,
	})
}

type verifyPaymentRequest struct {
	OrderID   string            `json:"orderId"`
	PaymentID string            `json:"paymentId"`
	Signature string            `json:"signature"`
	AddressID uuid.UUID         `json:"addressId"`
	CartItems []domain.CartItem `json:"cartItems"`
}

func (h *OrdersHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	placed, err := h.svc.ConfirmPayment(r.Context(), UserID(r.Context()), application.VerifyPaymentInput{
		ProviderOrderID: req.OrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
		AddressID:       req.AddressID,
		Items:           req.CartItems,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writePlaced(w, placed, "Order successfully created", "Order already placed successfully")
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.ListOrders(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.Success(w, "order list", lines)
}

func (h *OrdersHandler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.ListAllOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.Success(w, "All orders with customer details", lines)
}

type orderStatusRequest struct {
	OrderID   string `json:"orderId"`
	NewStatus string `json:"newStatus"`
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := helpers.DecodeJSON(r.Body, &req); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	lines, err := h.svc.UpdateStatus(r.Context(), req.OrderID, req.NewStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.Success(w, "Order status updated to "+req.NewStatus, lines)
}

func (h *OrdersHandler) ListCart(w http.ResponseWriter, r *http.Request) {
	items, sum, err := h.cart.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "cart",
		"error":   false,
		"success": true,
		"data":    items,
		"summary": sum,
	})
}

func (h *OrdersHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var item domain.CartItem
	if err := helpers.DecodeJSON(r.Body, &item); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := h.cart.Add(r.Context(), UserID(r.Context()), item); err != nil {
		writeError(w, err)
		return
	}
	helpers.Success(w, "item added to cart", nil)
}

func (h *OrdersHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "db_error"})
			return
		}
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writePlaced(w http.ResponseWriter, placed *application.PlacedOrder, freshMsg, replayMsg string) {
	if placed.Replay {
		helpers.WriteJSON(w, http.StatusOK, map[string]any{
			"message":     replayMsg,
			"error":       false,
			"success":     true,
			"data":        placed.Lines,
			"isDuplicate": true,
		})
		return
	}
	helpers.Success(w, freshMsg, placed.Lines)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrPaymentVerificationFailed):
		helpers.HttpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.HttpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		helpers.HttpError(w, http.StatusServiceUnavailable, err.Error())
	default:
		helpers.HttpError(w, http.StatusInternalServerError, err.Error())
	}
}
