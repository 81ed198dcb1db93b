package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robinvdvleuten/gains/report"
)

type healthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version,omitempty"`
	File     string    `json:"file"`
	LoadedAt time.Time `json:"loaded_at"`
	Healthy  bool      `json:"healthy"`
}

type summaryResponse struct {
	report.SummaryReport
	Assets []string `json:"assets"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()

	resp := healthResponse{
		Status:   "ok",
		Version:  s.Version,
		File:     s.inputFile,
		LoadedAt: st.loadedAt,
		Healthy:  st.reloadErr == nil && st.batchErr == nil,
	}
	if !resp.Healthy {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGains returns the full report document. Errors from the last failed
// reload are listed before the failures of the batch being served.
func (s *Server) handleGains(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()

	doc := s.reporter.Build(st.batch, st.batchErr)
	if st.reloadErr != nil {
		doc.Errors = append(report.ErrorReports(st.reloadErr), doc.Errors...)
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()

	doc := s.reporter.Build(st.batch, nil)
	resp := summaryResponse{
		SummaryReport: doc.Summary,
		Assets:        make([]string, 0, len(doc.Assets)),
	}
	for _, a := range doc.Assets {
		resp.Assets = append(resp.Assets, a.Asset)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	st := s.snapshot()

	for _, a := range s.reporter.Build(st.batch, nil).Assets {
		if a.Asset == asset {
			writeJSON(w, http.StatusOK, a)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown asset " + asset})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
