package httptransport

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"thepit/internal/bout"
	"thepit/internal/llm"
	"thepit/internal/ratelimit"
	"thepit/internal/store"
	"thepit/internal/stream"
)

var (
	boutsStartedTotal   = expvar.NewInt("bouts_started_total")
	boutsCompletedTotal = expvar.NewInt("bouts_completed_total")
	boutsErrorTotal     = expvar.NewInt("bouts_error_total")
	boutsRejectedTotal  = expvar.NewInt("bouts_rejected_total")
)

type BoutHandlers struct {
	svc   *bout.Service
	store *store.Store
}

func NewBoutHandlers(svc *bout.Service, st *store.Store) *BoutHandlers {
	return &BoutHandlers{svc: svc, store: st}
}

// Run validates the request and, on success, streams the bout as SSE.
// Validation failures are plain JSON; once the stream starts, failures
// surface as a terminal error event with a caller-safe message.
func (h *BoutHandlers) Run() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bout.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "Invalid JSON body.")
			return
		}
		req.BoutID = chi.URLParam(r, "bout_id")
		req.UserID = userID(r)
		req.ByokKey = r.Header.Get("X-Byok-Key")
		req.ByokModel = r.Header.Get("X-Byok-Model")
		req.ResearchKey = r.Header.Get("X-Research-Key")
		req.ClientID = ratelimit.ClientIdentifier(r)
		req.RequestID = chimw.GetReqID(r.Context())

		ec, rej := h.svc.Validate(r.Context(), req)
		if rej != nil {
			boutsRejectedTotal.Add(1)
			writeJSON(w, rej.Status, rej)
			return
		}

		boutsStartedTotal.Add(1)
		stream.SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		// Execute runs to completion regardless of the client; writes to a
		// gone connection fail silently while settlement still happens.
		_, err := h.svc.Execute(r.Context(), ec, func(ev bout.Event) {
			if werr := stream.WriteSSE(w, ev.Name(), ev); werr != nil {
				log.Debug().Err(werr).Str("bout_id", ec.BoutID).Msg("sse write failed")
			}
		})
		if err != nil {
			boutsErrorTotal.Add(1)
			_ = stream.WriteSSE(w, "error", bout.ErrorEvent{Message: llm.SafeMessage(err)})
			return
		}
		boutsCompletedTotal.Add(1)
	}
}

type transcriptEntryResponse struct {
	Turn      int    `json:"turn"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Text      string `json:"text"`
}

type boutResponse struct {
	ID             string                    `json:"id"`
	Status         string                    `json:"status"`
	PresetID       string                    `json:"presetId"`
	Topic          string                    `json:"topic,omitempty"`
	ResponseLength string                    `json:"responseLength"`
	ResponseFormat string                    `json:"responseFormat"`
	Transcript     []transcriptEntryResponse `json:"transcript"`
	ShareLine      *string                   `json:"shareLine,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

// Get serves the persisted bout row for replay and sharing surfaces.
func (h *BoutHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := h.store.GetBout(r.Context(), chi.URLParam(r, "bout_id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "Bout not found.")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "Internal error.")
			return
		}
		resp := boutResponse{
			ID:             b.ID,
			Status:         b.Status,
			PresetID:       b.PresetID,
			Topic:          b.Topic,
			ResponseLength: b.ResponseLength,
			ResponseFormat: b.ResponseFormat,
			Transcript:     make([]transcriptEntryResponse, 0, len(b.Transcript)),
			ShareLine:      b.ShareLine,
			CreatedAt:      b.CreatedAt,
			UpdatedAt:      b.UpdatedAt,
		}
		for _, entry := range b.Transcript {
			resp.Transcript = append(resp.Transcript, transcriptEntryResponse(entry))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
