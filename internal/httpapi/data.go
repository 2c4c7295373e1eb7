package httpapi

import (
	"net/http"
	"strings"

	"tokokasir/internal/domain"
)

func (a *API) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), r.PathValue("ref"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := a.service.ListMembers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (a *API) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := a.service.GetMember(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (a *API) handleListAttendants(w http.ResponseWriter, r *http.Request) {
	attendants, err := a.service.ListAttendants(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attendants": attendants})
}

func (a *API) handleSubmitSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	sale, err := a.service.SubmitSale(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	status := http.StatusCreated
	if sale.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, sale)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleListSuspendedSales(w http.ResponseWriter, r *http.Request) {
	sales, err := a.service.ListSuspendedSales(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suspended_sales": sales})
}

func (a *API) handleCreateSuspendedSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SuspendRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	saved, err := a.service.CreateSuspendedSale(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) handleDeleteSuspendedSale(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSuspendedSale(r.Context(), r.PathValue("id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSearchReceivables(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.ReceivableFilter{
		MemberName: query.Get("member"),
		Limit:      parsePositiveLimit(query.Get("limit"), 100, 500),
	}
	for _, status := range strings.Split(query.Get("status"), ",") {
		if status = strings.ToUpper(strings.TrimSpace(status)); status != "" {
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	receivables, err := a.service.SearchReceivables(r.Context(), filter)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receivables": receivables})
}

func (a *API) handlePayReceivable(w http.ResponseWriter, r *http.Request) {
	var req domain.ReceivablePaymentRequest
	if !a.decodeValid(w, r, &req) {
		return
	}

	updated, err := a.service.PayReceivable(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleListReceivablePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := a.service.ListReceivablePayments(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": payments})
}
