// Package server exposes stock records over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"stockscraper/extract"
	"stockscraper/fetch"
	"stockscraper/stock"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const noTablesMessage = "No tables found on the page. The site structure may have changed."

// Records builds the records served here. *stock.Service implements it.
type Records interface {
	GetFlatRecord(ctx context.Context, symbol string) (*extract.FlatRecord, error)
	GetProfileRecord(ctx context.Context, symbol string) (*extract.ProfileRecord, error)
}

// Server is the HTTP API.
type Server struct {
	records Records
	log     *slog.Logger
	handler http.Handler
}

// New creates the server and its routes.
func New(records Records, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{records: records, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}", s.handleFlat).Methods(http.MethodGet)
	router.HandleFunc("/api/stock/{symbol}/profile", s.handleProfile).Methods(http.MethodGet)

	var h http.Handler = router
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)(h)
	h = RequestLogger(s.log)(h)
	h = RequestID(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.log}))(h)
	s.handler = h
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "online",
		"endpoints": map[string]string{
			"price_data":      "/api/stock/<symbol>",
			"company_profile": "/api/stock/<symbol>/profile",
		},
	})
}

func (s *Server) handleFlat(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	rec, err := s.records.GetFlatRecord(r.Context(), symbol)
	if err != nil {
		s.writeError(w, r, "Failed to fetch data", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	rec, err := s.records.GetProfileRecord(r.Context(), symbol)
	if err != nil {
		s.writeError(w, r, "Failed to fetch profile", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// writeError maps service errors onto status codes. fetchMessage is the
// error text for upstream failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, fetchMessage string, err error) {
	var terr *fetch.TransportError
	var perr *extract.ParseError
	switch {
	case errors.Is(err, stock.ErrEmptySymbol):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.As(err, &terr):
		s.log.Warn("upstream failure", "request_id", RequestIDFrom(r.Context()), "error", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: fetchMessage, Code: terr.StatusCode})
	case errors.Is(err, extract.ErrStructureNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: noTablesMessage})
	case errors.As(err, &perr):
		s.log.Error("parse failure", "request_id", RequestIDFrom(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		s.log.Error("request failed", "request_id", RequestIDFrom(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
