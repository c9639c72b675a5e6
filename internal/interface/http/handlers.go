package httpservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/arkade-os/relayd/internal/core/application"
	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/pkg/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type handler struct {
	svc       application.Service
	heartbeat time.Duration

	eventsListenerHandler *broker[streamEvent]
}

func newHandler(svc application.Service, heartbeat time.Duration) *handler {
	h := &handler{
		svc:                   svc,
		heartbeat:             heartbeat,
		eventsListenerHandler: newBroker[streamEvent](),
	}

	go h.listenToEvents()

	return h
}

func (h *handler) getInfo(w http.ResponseWriter, r *http.Request) error {
	info, err := h.svc.GetInfo(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newInfo(*info))
	return nil
}

func (h *handler) listAssets(w http.ResponseWriter, r *http.Request) error {
	assets, err := h.svc.ListAssets(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, assetsResponse{assetList(assets).toJSON()})
	return nil
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) error {
	asset, err := h.svc.GetAsset(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newAsset(*asset))
	return nil
}

func (h *handler) listChains(w http.ResponseWriter, r *http.Request) error {
	chains, err := h.svc.SupportedChains(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, chainsResponse{chainList(chains).toJSON()})
	return nil
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) error {
	settings, err := h.svc.GetSettings(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newSettings(*settings))
	return nil
}

func (h *handler) initiateOutbound(w http.ResponseWriter, r *http.Request) error {
	var req outboundRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	txId, err := h.svc.InitiateOutbound(r.Context(), caller(r), application.OutboundRequest{
		Asset:       req.Asset,
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		DestChainId: req.DestChainId,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, outboundResponse{txId})
	return nil
}

func (h *handler) processInbound(w http.ResponseWriter, r *http.Request) error {
	var req inboundRequest
	if err := decodeBody(r, &req); err != nil {
		return err
	}

	res, err := h.svc.ProcessInbound(r.Context(), caller(r), application.InboundReport{
		SourceChainId: req.SourceChainId,
		SourceTxId:    req.SourceTxId,
		Sender:        req.Sender,
		Recipient:     req.Recipient,
		Asset:         req.Asset,
		Amount:        req.Amount,
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, inboundResponse{
		TxId:         res.TxId,
		Created:      res.Created,
		Finalized:    res.Finalized,
		ConfirmCount: res.ConfirmCount,
	})
	return nil
}

func (h *handler) confirmOutbound(w http.ResponseWriter, r *http.Request) error {
	txId, err := parseUintVar(r, "id")
	if err != nil {
		return err
	}
	tx, err := h.svc.ConfirmOutbound(r.Context(), caller(r), txId)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newTransaction(*tx))
	return nil
}

func (h *handler) expireTransaction(w http.ResponseWriter, r *http.Request) error {
	txId, err := parseUintVar(r, "id")
	if err != nil {
		return err
	}
	tx, err := h.svc.ExpireTransaction(r.Context(), txId)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newTransaction(*tx))
	return nil
}

func (h *handler) getTransaction(w http.ResponseWriter, r *http.Request) error {
	txId, err := parseUintVar(r, "id")
	if err != nil {
		return err
	}
	tx, err := h.svc.GetTransaction(r.Context(), txId)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newTransaction(*tx))
	return nil
}

func (h *handler) listTransactions(w http.ResponseWriter, r *http.Request) error {
	var filter domain.TransactionFilter

	query := r.URL.Query()
	if status := query.Get("status"); status != "" {
		st, ok := domain.ParseTxStatus(status)
		if !ok {
			return errors.INVALID_REQUEST.New("invalid status filter %q", status)
		}
		filter.Status = st
	}
	if direction := query.Get("direction"); direction != "" {
		d, ok := domain.ParseDirection(direction)
		if !ok {
			return errors.INVALID_REQUEST.New("invalid direction filter %q", direction)
		}
		filter.Direction = d
	}

	txs, err := h.svc.ListTransactions(r.Context(), filter)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, transactionsResponse{transactionList(txs).toJSON()})
	return nil
}

// getEventStream streams the domain events as server-sent events. An empty
// event is sent every heartbeat interval of inactivity.
func (h *handler) getEventStream(w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.INTERNAL_ERROR.New("streaming not supported")
	}

	var topics []string
	if param := r.URL.Query().Get("topics"); param != "" {
		topics = strings.Split(param, ",")
	}
	listener := newListener[streamEvent](uuid.NewString(), topics)

	h.eventsListenerHandler.pushListener(listener)
	defer h.eventsListenerHandler.removeListener(listener.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	timer := time.NewTimer(h.heartbeat)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(h.heartbeat)
	}

	for {
		select {
		case <-r.Context().Done():
			return nil
		case ev := <-listener.ch:
			if err := writeServerSentEvent(w, ev.Type, ev); err != nil {
				log.WithError(err).Debugf("closed event stream %s", listener.id)
				return nil
			}
			flusher.Flush()
			resetTimer()
		case <-timer.C:
			if err := writeServerSentEvent(w, "Heartbeat", emptyResponse{}); err != nil {
				log.WithError(err).Debugf("closed event stream %s", listener.id)
				return nil
			}
			flusher.Flush()
			resetTimer()
		}
	}
}

// listenToEvents forwards events from the application layer to the set of
// listeners.
func (h *handler) listenToEvents() {
	channel := h.svc.GetEventsChannel(context.Background())
	for events := range channel {
		if !h.eventsListenerHandler.hasListeners() {
			continue
		}

		for _, event := range events {
			ev := newStreamEvent(event)
			dropped := h.eventsListenerHandler.publish(ev.Topic, ev)
			for _, id := range dropped {
				log.Warnf("listener %s is too slow, dropped %s event", id, ev.Type)
			}
		}
	}
}

func writeServerSentEvent(w http.ResponseWriter, name string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, buf)
	return err
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.INVALID_REQUEST.New("invalid request body: %s", err)
	}
	return nil
}

func parseUintVar(r *http.Request, name string) (uint64, error) {
	value := mux.Vars(r)[name]
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.INVALID_REQUEST.New("invalid %s %q", name, value)
	}
	return parsed, nil
}

func caller(r *http.Request) string {
	return r.Header.Get(callerHeader)
}
