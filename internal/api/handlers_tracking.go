package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/guildops/timewarden/internal/api/respond"
	"github.com/guildops/timewarden/internal/model"
	"github.com/guildops/timewarden/internal/tracker"
)

type trackingHandler struct {
	deps Deps
}

type trackingRequest struct {
	DisplayName   string `json:"displayName"`
	RoleType      string `json:"roleType,omitempty"`
	Minutes       int    `json:"minutes,omitempty"`
	InitiatorID   string `json:"initiatorId,omitempty"`
	InitiatorName string `json:"initiatorName,omitempty"`
}

// entityView is the projection served for one entity: persisted record plus
// the live total, role and derived credits the command layer renders from.
type entityView struct {
	*model.TimeRecord
	LiveTotalSeconds float64        `json:"liveTotalSeconds"`
	RoleType         model.RoleType `json:"roleType"`
	Credits          int            `json:"credits"`
	Finished         bool           `json:"finished"`
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// roleFor uses the request's role when the caller supplied one, otherwise
// falls back to the resolver. Role is an input per call, never cached.
func (h *trackingHandler) roleFor(r *http.Request, id, requested string) (model.RoleType, error) {
	switch requested {
	case string(model.RoleNormal):
		return model.RoleNormal, nil
	case string(model.RoleUnlimited):
		return model.RoleUnlimited, nil
	case "":
		return h.deps.Roles.RoleType(r.Context(), id)
	default:
		return "", model.ErrInvalidArgument
	}
}

func (h *trackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req trackingRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.deps.Engine.Start(r.Context(), id, req.DisplayName); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	if req.InitiatorID != "" {
		init := model.Initiator{AdminID: req.InitiatorID, AdminName: req.InitiatorName}
		if err := h.deps.Engine.SetTrackingInitiator(r.Context(), id, init); err != nil {
			h.deps.Log.Warn().Err(err).Str("entity", id).Msg("record tracking initiator")
		}
	}
	h.writeEntity(w, r, id)
}

func (h *trackingHandler) PreRegister(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req trackingRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	var init *model.Initiator
	if req.InitiatorID != "" {
		init = &model.Initiator{AdminID: req.InitiatorID, AdminName: req.InitiatorName}
	}
	if err := h.deps.Engine.PreRegister(r.Context(), id, req.DisplayName, init); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeEntity(w, r, id)
}

func (h *trackingHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req trackingRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	role, err := h.roleFor(r, id, req.RoleType)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	res, err := h.deps.Engine.Pause(r.Context(), id, role)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *trackingHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	if err := h.deps.Engine.Resume(r.Context(), id); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeEntity(w, r, id)
}

func (h *trackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	res, err := h.deps.Engine.Stop(r.Context(), id)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *trackingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	res, err := h.deps.Engine.CancelKeepWholeHours(r.Context(), id)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

func (h *trackingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	if err := h.deps.Engine.ResetEntity(r.Context(), id); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeEntity(w, r, id)
}

func (h *trackingHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	if err := h.deps.Engine.Remove(r.Context(), id); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *trackingHandler) AddMinutes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req trackingRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.deps.Engine.AddMinutes(r.Context(), id, req.DisplayName, req.Minutes); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeEntity(w, r, id)
}

func (h *trackingHandler) SubtractMinutes(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["entityId"]
	var req trackingRequest
	if err := decodeBody(r, &req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := h.deps.Engine.SubtractMinutes(r.Context(), id, req.Minutes); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	h.writeEntity(w, r, id)
}

func (h *trackingHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Engine.ResetAll(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int{"reset": n})
}

func (h *trackingHandler) WipeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.Engine.WipeAll(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *trackingHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeEntity(w, r, mux.Vars(r)["entityId"])
}

func (h *trackingHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.deps.Engine.Snapshot(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	views := make(map[string]entityView, len(snapshot))
	for id, rec := range snapshot {
		views[id] = h.view(r, rec)
	}
	respond.WriteJSON(w, http.StatusOK, views)
}

func (h *trackingHandler) writeEntity(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.deps.Engine.Record(r.Context(), id)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, h.view(r, rec))
}

func (h *trackingHandler) view(r *http.Request, rec *model.TimeRecord) entityView {
	role, err := h.deps.Roles.RoleType(r.Context(), rec.ID)
	if err != nil {
		h.deps.Log.Warn().Err(err).Str("entity", rec.ID).Msg("resolve role, assuming normal")
		role = model.RoleNormal
	}
	live, err := h.deps.Engine.TotalSeconds(r.Context(), rec.ID)
	if err != nil {
		live = rec.TotalSeconds
	}
	return entityView{
		TimeRecord:       rec,
		LiveTotalSeconds: live,
		RoleType:         role,
		Credits:          tracker.Credits(live, role),
		Finished:         tracker.Finished(rec, live, role),
	}
}
