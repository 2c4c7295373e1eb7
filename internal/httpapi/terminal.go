package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"tokokasir/internal/register"
	"tokokasir/internal/service"
)

type addItemRequest struct {
	Ref string `json:"ref" validate:"required,max=120"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type memberRequest struct {
	MemberID string `json:"member_id" validate:"max=120"`
}

type attendantRequest struct {
	AttendantID string `json:"attendant_id" validate:"max=120"`
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type settlementRequest struct {
	Mode    string `json:"mode" validate:"required,oneof=PAID UNPAID"`
	Payment int64  `json:"payment" validate:"gte=0"`
}

type suspendRequest struct {
	Label string `json:"label" validate:"max=120"`
	Notes string `json:"notes" validate:"max=500"`
}

type resumeRequest struct {
	Discard bool `json:"discard"`
}

type paymentRequest struct {
	Amount int64 `json:"amount"`
}

type cartResponse struct {
	Clamped bool           `json:"clamped"`
	State   register.State `json:"state"`
}

func (a *API) registerTerminalRoutes(mux *http.ServeMux, roles []string) {
	const prefix = "/api/v1/terminals/{terminal}"
	route := func(pattern string, h func(http.ResponseWriter, *http.Request, *register.Terminal)) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+prefix+path, a.requireAuth(a.withTerminal(h), roles...))
	}

	route("GET /session", a.handleSessionState)
	route("POST /reset", a.handleSessionReset)
	route("POST /cart/items", a.handleAddItem)
	route("PATCH /cart/items/{product}", a.handleUpdateItem)
	route("DELETE /cart/items/{product}", a.handleRemoveItem)
	route("PUT /member", a.handleSelectMember)
	route("PUT /attendant", a.handleSelectAttendant)
	route("PUT /discount", a.handleSetDiscount)
	route("PUT /payment", a.handleSetPayment)
	route("POST /settlement", a.handleRequestSettlement)
	route("POST /settlement/{pending}/confirm", a.handleConfirmSettlement)
	route("DELETE /settlement", a.handleCancelSettlement)
	route("POST /suspend", a.handleSuspend)
	route("GET /suspended", a.handleListSuspended)
	route("POST /suspended/{id}/resume", a.handleResume)
	route("GET /products", a.handleTerminalProducts)
	route("GET /receivables", a.handleTerminalReceivables)
	route("POST /receivables/{id}/payments", a.handleTerminalPayReceivable)
}

// withTerminal binds the request to the terminal in the path, opened for the
// authenticated cashier.
func (a *API) withTerminal(next func(http.ResponseWriter, *http.Request, *register.Terminal)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := service.ActorFromContext(r.Context())
		term, err := a.registry.Open(r.PathValue("terminal"), actor.Username)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		next(w, r, term)
	}
}

func (a *API) handleSessionState(w http.ResponseWriter, _ *http.Request, term *register.Terminal) {
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleSessionReset(w http.ResponseWriter, _ *http.Request, term *register.Terminal) {
	if err := term.Session.Reset(); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleAddItem(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req addItemRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	clamped, err := term.Session.AddProduct(r.Context(), req.Ref)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Clamped: clamped, State: term.Session.State()})
}

func (a *API) handleUpdateItem(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req quantityRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	clamped, err := term.Session.UpdateQuantity(r.PathValue("product"), req.Quantity)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Clamped: clamped, State: term.Session.State()})
}

func (a *API) handleRemoveItem(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	if err := term.Session.Remove(r.PathValue("product")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleSelectMember(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req memberRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	if _, err := term.Session.SelectMember(r.Context(), req.MemberID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleSelectAttendant(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req attendantRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	if _, err := term.Session.SelectAttendant(r.Context(), req.AttendantID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleSetDiscount(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req amountRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	if err := term.Session.SetAdditionalDiscount(req.Amount); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleSetPayment(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req paymentRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	if err := term.Session.SetPayment(req.Amount); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleRequestSettlement(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req settlementRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	pending, err := term.Session.RequestSettlement(register.Mode(req.Mode), req.Payment)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (a *API) handleConfirmSettlement(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	result, err := term.Session.ConfirmSettlement(r.Context(), r.PathValue("pending"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handleCancelSettlement(w http.ResponseWriter, _ *http.Request, term *register.Terminal) {
	term.Session.CancelSettlement()
	writeJSON(w, http.StatusOK, term.Session.State())
}

func (a *API) handleSuspend(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req suspendRequest
	if !a.decodeOptional(w, r, &req) {
		return
	}
	saved, err := term.Session.Suspend(r.Context(), req.Label, req.Notes)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) handleListSuspended(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	sales, err := term.Session.ListSuspended(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suspended_sales": sales})
}

func (a *API) handleResume(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req resumeRequest
	if !a.decodeOptional(w, r, &req) {
		return
	}
	state, err := term.Session.ResumeByID(r.Context(), r.PathValue("id"), req.Discard)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) handleTerminalProducts(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	products, err := term.Session.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleTerminalReceivables(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	receivables, err := term.Debts.Search(r.Context(), r.URL.Query().Get("member"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receivables": receivables})
}

func (a *API) handleTerminalPayReceivable(w http.ResponseWriter, r *http.Request, term *register.Terminal) {
	var req paymentRequest
	if !a.decodeValid(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if _, err := term.Debts.Select(id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	updated, err := term.Debts.Pay(r.Context(), id, req.Amount)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// decodeOptional is decodeValid for endpoints whose body may be omitted.
func (a *API) decodeOptional(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil && !errors.Is(err, io.EOF) {
		a.writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		a.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
