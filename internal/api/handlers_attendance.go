package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/guildops/timewarden/internal/api/respond"
)

type attendanceHandler struct {
	deps Deps
}

type attendanceRequest struct {
	DisplayName string `json:"displayName"`
	Quantity    int    `json:"quantity"`
}

type transferRequest struct {
	FromID   string `json:"fromId"`
	ToID     string `json:"toId"`
	ToName   string `json:"toName"`
	Quantity int    `json:"quantity"`
}

func (h *attendanceHandler) GrantDaily(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	req := attendanceRequest{Quantity: 1}
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	granted, err := h.deps.Ledger.GrantDaily(r.Context(), id, req.DisplayName, req.Quantity)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	info, err := h.deps.Ledger.GetInfo(r.Context(), id)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"granted": granted, "info": info})
}

func (h *attendanceHandler) GrantDailyManual(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req attendanceRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.deps.Ledger.GrantDailyManual(r.Context(), id, req.DisplayName, req.Quantity); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeInfo(w, r, id)
}

func (h *attendanceHandler) GrantManual(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req attendanceRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.deps.Ledger.GrantManual(r.Context(), id, req.DisplayName, req.Quantity); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeInfo(w, r, id)
}

func (h *attendanceHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if req.FromID == "" || req.ToID == "" {
		respond.WriteBadRequest(w, "fromId and toId are required")
		return
	}
	if err := h.deps.Ledger.Transfer(r.Context(), req.FromID, req.ToID, req.ToName, req.Quantity); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	from, err := h.deps.Ledger.GetInfo(r.Context(), req.FromID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	to, err := h.deps.Ledger.GetInfo(r.Context(), req.ToID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"from": from, "to": to})
}

func (h *attendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeInfo(w, r, mux.Vars(r)["entityId"])
}

func (h *attendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.deps.Ledger.Snapshot(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *attendanceHandler) ResetWeekly(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ledger.ResetWeeklyBonuses(r.Context()); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *attendanceHandler) ResetDaily(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Ledger.ResetTransferLocks(r.Context()); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *attendanceHandler) WipeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Ledger.ResetAll(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *attendanceHandler) writeInfo(w http.ResponseWriter, r *http.Request, id string) {
	info, err := h.deps.Ledger.GetInfo(r.Context(), id)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, info)
}
