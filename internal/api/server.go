package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/store"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// UserIDHeader carries the id of the calling user. Authentication happens in front of this server.
const UserIDHeader = "X-User-ID"

// Server exposes strategy management and backtest runs over HTTP.
type Server struct {
	store  store.Store
	engine engine.Engine
	logger *logger.Logger
	router *mux.Router
}

func NewServer(st store.Store, eng engine.Engine, log *logger.Logger) *Server {
	s := &Server{
		store:  st,
		engine: eng,
		logger: log,
		router: mux.NewRouter(),
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := s.router.PathPrefix("/backtest").Subrouter()
	r.Use(s.requireUser)

	r.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/strategy", s.handleCreateStrategy).Methods(http.MethodPost)
	r.HandleFunc("/strategy", s.handleListStrategies).Methods(http.MethodGet)
	r.HandleFunc("/strategy/{id}", s.handleGetStrategy).Methods(http.MethodGet)
	r.HandleFunc("/strategy/{id}", s.handleUpdateStrategy).Methods(http.MethodPut)
	r.HandleFunc("/strategy/{id}", s.handleDeleteStrategy).Methods(http.MethodDelete)
	r.HandleFunc("/strategy/{id}/share", s.handleShareStrategy).Methods(http.MethodPost)
	r.HandleFunc("/results", s.handleListResults).Methods(http.MethodGet)
	r.HandleFunc("/results/{id}", s.handleGetResult).Methods(http.MethodGet)
	r.HandleFunc("/results/{id}", s.handleDeleteResult).Methods(http.MethodDelete)
	r.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(UserIDHeader) == "" {
			s.respondError(w, r, errors.Newf(errors.ErrCodeUnauthorized, "missing %s header", UserIDHeader))

			return
		}

		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, statusCode int, response any) {
	if err := setResponse(w, statusCode, response); err != nil {
		s.logger.Error("Failed to write response", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if statusCode(err) == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}

	if writeErr := setErrorResponse(w, err); writeErr != nil {
		s.logger.Error("Failed to write error response", zap.String("path", r.URL.Path), zap.Error(writeErr))
	}
}

// handleRun runs the strategy given by the strategy_id query parameter against the backtest
// config in the body and stores the result. Fields missing from the body take their defaults.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	strategyID := r.URL.Query().Get("strategy_id")
	if strategyID == "" {
		s.respondError(w, r, errors.New(errors.ErrCodeMissingParameter, "strategy_id is required"))

		return
	}

	config := types.DefaultBacktestConfig()
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err))

		return
	}

	strategy, err := s.store.GetStrategy(r.Context(), userID(r), strategyID)
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	result, err := s.engine.Run(r.Context(), strategy.Config, config, engine.LifecycleCallbacks{})
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	stored, err := s.store.SaveResult(r.Context(), userID(r), strategyID, result)
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.logger.Info("Backtest stored",
		zap.String("result_id", stored.ID),
		zap.String("strategy_id", strategyID),
		zap.Int("trades", len(result.Trades)),
	)

	s.respond(w, r, http.StatusOK, stored)
}

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var config types.StrategyConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid strategy config", err))

		return
	}

	strategy, err := s.store.CreateStrategy(r.Context(), userID(r), config)
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusCreated, strategy)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	includePublic := false

	if raw := r.URL.Query().Get("include_public"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, r, errors.Wrap(errors.ErrCodeInvalidParameter, "include_public must be a boolean", err))

			return
		}

		includePublic = parsed
	}

	strategies, err := s.store.ListStrategies(r.Context(), userID(r), includePublic)
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, strategies)
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strategy, err := s.store.GetStrategy(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, strategy)
}

func (s *Server) handleUpdateStrategy(w http.ResponseWriter, r *http.Request) {
	var config types.StrategyConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid strategy config", err))

		return
	}

	strategy, err := s.store.UpdateStrategy(r.Context(), userID(r), mux.Vars(r)["id"], config)
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, strategy)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStrategy(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, messageResponse{Message: "Strategy deleted successfully"})
}

// handleShareStrategy sets the visibility from the is_public query parameter.
func (s *Server) handleShareStrategy(w http.ResponseWriter, r *http.Request) {
	isPublic, err := strconv.ParseBool(r.URL.Query().Get("is_public"))
	if err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInvalidParameter, "is_public must be a boolean", err))

		return
	}

	if _, err := s.store.ShareStrategy(r.Context(), userID(r), mux.Vars(r)["id"], isPublic); err != nil {
		s.respondError(w, r, err)

		return
	}

	visibility := "private"
	if isPublic {
		visibility = "public"
	}

	s.respond(w, r, http.StatusOK, messageResponse{Message: fmt.Sprintf("Strategy is now %s", visibility)})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListResults(r.Context(), userID(r), r.URL.Query().Get("strategy_id"))
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, results)
}

func (s *Server) handleGetResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.store.GetResult(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, result)
}

func (s *Server) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteResult(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, r, err)

		return
	}

	s.respond(w, r, http.StatusOK, messageResponse{Message: "Result deleted successfully"})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.engine.GetConfigSchema()
	if err != nil {
		s.respondError(w, r, err)

		return
	}

	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(schema)); err != nil {
		s.logger.Error("Failed to write schema", zap.Error(err))
	}
}
