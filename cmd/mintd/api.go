package main

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strconv"

	"mintcore/internal/core"
	"mintcore/pkg/domain"
)

type apiServer struct {
	svc *core.Service
}

func newMux(svc *core.Service, metricsHandler http.Handler) *http.ServeMux {
	api := &apiServer{svc: svc}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metricsHandler)
	mux.Handle("GET /debug/vars", expvar.Handler())

	mux.HandleFunc("POST /v1/categories", api.createCategory)
	mux.HandleFunc("GET /v1/categories", api.listCategories)
	mux.HandleFunc("GET /v1/categories/{id}", api.getCategory)
	mux.HandleFunc("POST /v1/categories/{id}/items", api.issue)
	mux.HandleFunc("GET /v1/items/{id}", api.getItem)
	mux.HandleFunc("POST /v1/rules", api.setRule)
	mux.HandleFunc("GET /v1/rules", api.getRule)
	mux.HandleFunc("POST /v1/upgrades", api.upgrade)
	mux.HandleFunc("GET /v1/config", api.getConfig)
	mux.HandleFunc("PUT /v1/config/max-batch-size", api.setMaxBatchSize)
	return mux
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors are
// internal failures.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrUpgradeRuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAdministrator),
		errors.Is(err, domain.ErrNotApprovedOrOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOperationSuspended):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrCategoryExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSupply),
		errors.Is(err, domain.ErrSupplyExhausted),
		errors.Is(err, domain.ErrBatchTooLarge),
		errors.Is(err, domain.ErrUpgradeCountMismatch),
		errors.Is(err, domain.ErrMixedUpgradeNotAllowed),
		errors.Is(err, domain.ErrMixedUpgradeCountMismatch),
		errors.Is(err, domain.ErrCounterOverflow):
		return http.StatusUnprocessableEntity
	default:
		var rve domain.RuleViolationError
		if errors.As(err, &rve) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, err error) {
	writeJSON(rw, statusFor(err), map[string]string{"error": err.Error()})
}

func decodeBody(rw http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func pathID(rw http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryID(rw http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid query parameter " + name})
		return 0, false
	}
	return id, true
}

type createCategoryRequest struct {
	Actor     domain.Address `json:"actor"`
	SupplyCap uint64         `json:"supply_cap"`
	Creator   domain.Address `json:"creator"`
}

func (a *apiServer) createCategory(rw http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	category, _, err := a.svc.CreateCategory(r.Context(), req.Actor, req.SupplyCap, req.Creator)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, category)
}

func (a *apiServer) listCategories(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, a.svc.Store().ListCategories())
}

func (a *apiServer) getCategory(rw http.ResponseWriter, r *http.Request) {
	id, ok := pathID(rw, r, "id")
	if !ok {
		return
	}
	category, ok := a.svc.Store().GetCategory(id)
	if !ok {
		writeError(rw, domain.ErrCategoryNotFound)
		return
	}
	writeJSON(rw, http.StatusOK, category)
}

type issueRequest struct {
	Actor     domain.Address `json:"actor"`
	Recipient domain.Address `json:"recipient"`
	Count     uint64         `json:"count"`
}

func (a *apiServer) issue(rw http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(rw, r, "id")
	if !ok {
		return
	}
	var req issueRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.Count <= 1 {
		item, _, err := a.svc.IssueOne(r.Context(), req.Actor, categoryID, req.Recipient)
		if err != nil {
			writeError(rw, err)
			return
		}
		writeJSON(rw, http.StatusCreated, []domain.Item{item})
		return
	}
	items, _, err := a.svc.IssueBatch(r.Context(), req.Actor, categoryID, req.Recipient, req.Count)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, items)
}

func (a *apiServer) getItem(rw http.ResponseWriter, r *http.Request) {
	id, ok := pathID(rw, r, "id")
	if !ok {
		return
	}
	item, ok := a.svc.Store().GetItem(id)
	if !ok {
		writeError(rw, domain.ErrItemNotFound)
		return
	}
	writeJSON(rw, http.StatusOK, item)
}

type setRuleRequest struct {
	Actor         domain.Address `json:"actor"`
	Base          uint64         `json:"base"`
	Mix           uint64         `json:"mix"`
	Target        uint64         `json:"target"`
	RequiredCount uint64         `json:"required_count"`
}

func (a *apiServer) setRule(rw http.ResponseWriter, r *http.Request) {
	var req setRuleRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	rule, _, err := a.svc.SetUpgradeRule(r.Context(), req.Actor, req.Base, req.Mix, req.Target, req.RequiredCount)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, rule)
}

func (a *apiServer) getRule(rw http.ResponseWriter, r *http.Request) {
	base, ok := queryID(rw, r, "base")
	if !ok {
		return
	}
	mix, ok := queryID(rw, r, "mix")
	if !ok {
		return
	}
	rule, ok := a.svc.GetUpgradeRule(base, mix)
	if !ok {
		writeError(rw, domain.ErrUpgradeRuleNotFound)
		return
	}
	writeJSON(rw, http.StatusOK, rule)
}

type upgradeRequest struct {
	Owner    domain.Address  `json:"owner"`
	ItemIDs  []uint64        `json:"item_ids"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (a *apiServer) upgrade(rw http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	item, _, err := a.svc.Upgrade(r.Context(), req.Owner, req.ItemIDs, req.Metadata)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusCreated, item)
}

func (a *apiServer) getConfig(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]uint64{"max_batch_size": a.svc.MaxBatchSize()})
}

type setMaxBatchSizeRequest struct {
	Actor domain.Address `json:"actor"`
	Limit uint64         `json:"limit"`
}

func (a *apiServer) setMaxBatchSize(rw http.ResponseWriter, r *http.Request) {
	var req setMaxBatchSizeRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if _, err := a.svc.SetMaxBatchSize(r.Context(), req.Actor, req.Limit); err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]uint64{"max_batch_size": a.svc.MaxBatchSize()})
}
