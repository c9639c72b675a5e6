package httpservice

import (
	"net/http"

	"github.com/arkade-os/relayd/internal/core/application"
	"github.com/gorilla/mux"
)

type adminHandler struct {
	svc application.AdminService
}

func newAdminHandler(svc application.AdminService) *adminHandler {
	return &adminHandler{svc}
}

func (h *adminHandler) listAsset(w http.ResponseWriter, r *http.Request) error {
	var req listAssetRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := h.svc.ListAsset(r.Context(), caller(r), req.Name, req.Symbol, req.Address); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) delistAsset(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.DelistAsset(r.Context(), caller(r), mux.Vars(r)["address"]); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) addChain(w http.ResponseWriter, r *http.Request) error {
	var req addChainRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := h.svc.AddChain(r.Context(), caller(r), req.Name, req.ChainId); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) removeChain(w http.ResponseWriter, r *http.Request) error {
	chainId, err := parseUintVar(r, "id")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveChain(r.Context(), caller(r), chainId); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) collectFees(w http.ResponseWriter, r *http.Request) error {
	asset := mux.Vars(r)["asset"]
	amount, err := h.svc.CollectFees(r.Context(), caller(r), asset)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, feesResponse{asset, amount})
	return nil
}

func (h *adminHandler) getFeeBalance(w http.ResponseWriter, r *http.Request) error {
	asset := mux.Vars(r)["asset"]
	amount, err := h.svc.GetFeeBalance(r.Context(), asset)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, feesResponse{asset, amount})
	return nil
}

func (h *adminHandler) updateParameter(w http.ResponseWriter, r *http.Request) error {
	var req updateParameterRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	name := mux.Vars(r)["name"]
	if err := h.svc.UpdateParameter(r.Context(), caller(r), name, req.Value); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) updateFeeCollector(w http.ResponseWriter, r *http.Request) error {
	var req updateFeeCollectorRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	if err := h.svc.UpdateFeeCollector(r.Context(), caller(r), req.Address); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) abortTransaction(w http.ResponseWriter, r *http.Request) error {
	txId, err := parseUintVar(r, "id")
	if err != nil {
		return err
	}
	var req abortRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}
	tx, err := h.svc.AbortTransaction(r.Context(), caller(r), txId, req.Reason)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newTransaction(*tx))
	return nil
}

func (h *adminHandler) pause(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.Pause(r.Context(), caller(r)); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}

func (h *adminHandler) unpause(w http.ResponseWriter, r *http.Request) error {
	if err := h.svc.Unpause(r.Context(), caller(r)); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, emptyResponse{})
	return nil
}
