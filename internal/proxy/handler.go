package proxy

import (
	"encoding/json"
	"net/http"
)

// ContractRoute is the single resource served by the Handler
const ContractRoute = "GET /contract/{address}/{function}"

// Handler adapts HTTP requests to the Orchestrator
type Handler struct {
	orchestrator *Orchestrator
}

// NewHandler creates a new Handler
func NewHandler(orchestrator *Orchestrator) *Handler {
	return &Handler{orchestrator: orchestrator}
}

// Register adds the contract route to mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle(ContractRoute, h)
}

// ServeHTTP handles GET /contract/{address}/{function}?tokenId=..&address=..
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.orchestrator.Handle(r.Context(), Query{
		Address:  r.PathValue("address"),
		Function: r.PathValue("function"),
		Inputs:   r.URL.Query(),
	})
	WriteJSON(w, resp.Status, resp.Body)
}

// WriteJSON writes body as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
