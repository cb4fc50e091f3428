package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/transport/simdto"
)

// maxBodyBytes bounds request bodies; plans are small documents.
const maxBodyBytes = 1 << 20

type Handler struct {
	svc app.SimulationService
}

func NewHandler(svc app.SimulationService) *Handler {
	return &Handler{svc: svc}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/simulate", h.Simulate)
	mux.HandleFunc("/history", h.History)
	mux.HandleFunc("/healthz", h.Healthz)
}

func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in simdto.SimulateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, simdto.ErrorResponse{Error: "invalid json", Details: err.Error()})
		return
	}

	res, err := h.svc.Simulate(r.Context(), in.Input())
	if err != nil {
		status, body := simdto.ErrorStatus(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, simdto.NewSimulateResponse(res, in.Report))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, simdto.ErrorResponse{Error: "invalid limit", Details: raw})
			return
		}
		limit = v
	}

	recs, err := h.svc.History(r.Context(), q.Get("scenario"), limit)
	if err != nil {
		status, body := simdto.ErrorStatus(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, simdto.HistoryResponse{Records: recs})
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
