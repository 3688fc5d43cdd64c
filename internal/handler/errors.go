package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/checkout"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/money"
)

const (
	kindUnauthorized = "unauthorized"
	kindForbidden    = "forbidden"
)

// apiError is an error with a fixed HTTP rendering.
type apiError struct {
	Status  int
	Kind    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

var (
	errUnauthorized = &apiError{Status: http.StatusUnauthorized, Kind: kindUnauthorized, Message: "missing or invalid api key"}
	errForbidden    = &apiError{Status: http.StatusForbidden, Kind: kindForbidden, Message: "operator scope required"}
	errOrderMissing = &apiError{Status: http.StatusNotFound, Kind: checkout.KindNotFound, Message: "order not found"}
)

func badRequest(msg string) error {
	return &apiError{Status: http.StatusBadRequest, Kind: checkout.KindValidationFailed, Message: msg}
}

var kindStatus = map[string]int{
	checkout.KindValidationFailed:         http.StatusBadRequest,
	checkout.KindMissingDeliveryTarget:    http.StatusUnprocessableEntity,
	checkout.KindInvalidAddress:           http.StatusUnprocessableEntity,
	checkout.KindVariantNotFound:          http.StatusUnprocessableEntity,
	checkout.KindInsufficientStock:        http.StatusUnprocessableEntity,
	checkout.KindInvalidPromoCode:         http.StatusUnprocessableEntity,
	checkout.KindInsufficientBonusBalance: http.StatusUnprocessableEntity,
	checkout.KindInvalidTransition:        http.StatusConflict,
	checkout.KindNotFound:                 http.StatusNotFound,
}

type errorBody struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func errorDetails(err error) map[string]any {
	var (
		validation *checkout.ValidationError
		variant    *inventory.VariantNotFoundError
		stock      *inventory.InsufficientStockError
		balance    *bonus.InsufficientBonusBalanceError
		transition *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		fields := make(map[string]any, len(validation.Fields))
		for k, v := range validation.Fields {
			fields[k] = v
		}
		return map[string]any{"fields": fields}
	case errors.As(err, &variant):
		return map[string]any{"variant_id": variant.VariantID}
	case errors.As(err, &stock):
		return map[string]any{
			"variant_id": stock.VariantID,
			"product":    stock.Product,
			"requested":  stock.Requested,
			"available":  stock.Available,
		}
	case errors.As(err, &balance):
		return map[string]any{
			"requested": money.Format(balance.Requested),
			"available": money.Format(balance.Available),
		}
	case errors.As(err, &transition):
		return map[string]any{"from": transition.From, "to": transition.To}
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Details: errorDetails(err)}

	var ae *apiError
	if errors.As(err, &ae) {
		body.Code, body.Error, body.Message = ae.Status, ae.Kind, ae.Message
	} else {
		kind := checkout.ErrorKind(err)
		status, ok := kindStatus[kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		body.Code, body.Error, body.Message = status, kind, err.Error()
	}

	lg := zctx.From(r.Context())
	if body.Code >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
		body.Message = "internal server error"
	} else {
		lg.Debug("Request rejected", zap.String("kind", body.Error), zap.Error(err))
	}
	writeJSON(w, body.Code, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
