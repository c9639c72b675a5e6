package httpservice

import (
	"net/http"

	"github.com/gorilla/mux"
)

func newRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger, panicRecovery)
	return router
}

func registerPublicRoutes(router *mux.Router, h *handler) {
	v1 := router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/info", handle(h.getInfo)).Methods(http.MethodGet)
	v1.HandleFunc("/assets", handle(h.listAssets)).Methods(http.MethodGet)
	v1.HandleFunc("/assets/{address}", handle(h.getAsset)).Methods(http.MethodGet)
	v1.HandleFunc("/chains", handle(h.listChains)).Methods(http.MethodGet)
	v1.HandleFunc("/settings", handle(h.getSettings)).Methods(http.MethodGet)

	v1.HandleFunc("/outbound", handle(h.initiateOutbound)).Methods(http.MethodPost)
	v1.HandleFunc("/inbound", handle(h.processInbound)).Methods(http.MethodPost)
	v1.HandleFunc("/tx/{id}/confirm", handle(h.confirmOutbound)).Methods(http.MethodPost)
	v1.HandleFunc("/tx/{id}/expire", handle(h.expireTransaction)).Methods(http.MethodPost)
	v1.HandleFunc("/tx/{id}", handle(h.getTransaction)).Methods(http.MethodGet)
	v1.HandleFunc("/txs", handle(h.listTransactions)).Methods(http.MethodGet)

	v1.HandleFunc("/events", handle(h.getEventStream)).Methods(http.MethodGet)
}

func registerAdminRoutes(router *mux.Router, h *adminHandler) {
	admin := router.PathPrefix("/v1/admin").Subrouter()

	admin.HandleFunc("/assets", handle(h.listAsset)).Methods(http.MethodPost)
	admin.HandleFunc("/assets/{address}", handle(h.delistAsset)).Methods(http.MethodDelete)
	admin.HandleFunc("/chains", handle(h.addChain)).Methods(http.MethodPost)
	admin.HandleFunc("/chains/{id}", handle(h.removeChain)).Methods(http.MethodDelete)

	admin.HandleFunc("/fees/{asset}/collect", handle(h.collectFees)).Methods(http.MethodPost)
	admin.HandleFunc("/fees/{asset}", handle(h.getFeeBalance)).Methods(http.MethodGet)
	admin.HandleFunc("/settings/{name}", handle(h.updateParameter)).Methods(http.MethodPut)
	admin.HandleFunc("/fee-collector", handle(h.updateFeeCollector)).Methods(http.MethodPut)

	admin.HandleFunc("/tx/{id}/abort", handle(h.abortTransaction)).Methods(http.MethodPost)
	admin.HandleFunc("/pause", handle(h.pause)).Methods(http.MethodPost)
	admin.HandleFunc("/unpause", handle(h.unpause)).Methods(http.MethodPost)
}
