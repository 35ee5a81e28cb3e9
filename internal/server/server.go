// RecoMart - Recommendation Feature Pipeline
// Copyright 2026 The RecoMart Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recomart/recomart

// Package server exposes the trained model and the online feature store over
// HTTP. The server is read-only: all state is built by the batch pipeline
// before serving starts.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recomart/recomart/internal/config"
	"github.com/recomart/recomart/internal/featurestore"
	"github.com/recomart/recomart/internal/logging"
	"github.com/recomart/recomart/internal/metrics"
	"github.com/recomart/recomart/internal/models"
	"github.com/recomart/recomart/internal/recommend"
)

// Server serves recommendations and online feature lookups.
type Server struct {
	cfg      config.ServerConfig
	defaultK int

	model     *recommend.ContentSimilarity
	registry  *featurestore.Registry
	online    *featurestore.OnlineStore
	warehouse *featurestore.Warehouse

	http *http.Server
}

// New assembles the server over a trained model and the feature store
// surfaces.
func New(cfg *config.Config, model *recommend.ContentSimilarity, registry *featurestore.Registry, online *featurestore.OnlineStore, warehouse *featurestore.Warehouse) *Server {
	s := &Server{
		cfg:       cfg.Server,
		defaultK:  cfg.Recommend.TopK,
		model:     model,
		registry:  registry,
		online:    online,
		warehouse: warehouse,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.Timeout))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimitReqs, cfg.Server.RateLimitWindow))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/recommendations/{productID}", s.handleRecommendations)
		r.Get("/features/{view}/{entityID}", s.handleFeatureLookup)
		r.Get("/users/{userID}/affinity", s.handleUserAffinity)
	})

	s.http = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks until the context is canceled or the listener fails,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.http.Addr).Msg("Inference server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Inference server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type healthResponse struct {
	Status        string    `json:"status"`
	Warehouse     string    `json:"warehouse"`
	ModelTrained  bool      `json:"model_trained"`
	ModelVersion  int       `json:"model_version"`
	LastTrainedAt time.Time `json:"last_trained_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	warehouse := "ok"
	if err := s.warehouse.Ping(2 * time.Second); err != nil {
		warehouse = "unavailable"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Warehouse:     warehouse,
		ModelTrained:  s.model.IsTrained(),
		ModelVersion:  s.model.Version(),
		LastTrainedAt: s.model.LastTrainedAt(),
	})
}

type recommendationsResponse struct {
	ProductID       int                        `json:"product_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		writeError(w, http.StatusBadRequest, "product ID must be an integer")
		return
	}

	k := s.defaultK
	if raw := r.URL.Query().Get("limit"); raw != "" {
		k, err = strconv.Atoi(raw)
		if err != nil || k < 1 {
			metrics.RecommendRequests.WithLabelValues("error").Inc()
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	recs, err := s.model.Recommend(productID, k)
	switch {
	case errors.Is(err, recommend.ErrItemNotFound):
		metrics.RecommendRequests.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, fmt.Sprintf("product %d not found", productID))
		return
	case errors.Is(err, recommend.ErrNotTrained):
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		writeError(w, http.StatusServiceUnavailable, "model not trained")
		return
	case err != nil:
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		logging.Error().Err(err).Int("product_id", productID).Msg("Recommendation query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.RecommendRequests.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, recommendationsResponse{ProductID: productID, Recommendations: recs})
}

type featureResponse struct {
	View     string              `json:"view"`
	Version  string              `json:"version"`
	EntityID string              `json:"entity_id"`
	Rows     []map[string]string `json:"rows"`
}

func (s *Server) handleFeatureLookup(w http.ResponseWriter, r *http.Request) {
	viewName := chi.URLParam(r, "view")
	entityID := chi.URLParam(r, "entityID")

	// Resolve through the registry first so an unregistered view is
	// distinguishable from a missing entity.
	view, err := s.registry.View(viewName)
	if errors.Is(err, featurestore.ErrUnknownView) {
		metrics.OnlineLookups.WithLabelValues(viewName, "miss").Inc()
		writeError(w, http.StatusNotFound, fmt.Sprintf("feature view %q not registered", viewName))
		return
	}
	if err != nil {
		metrics.OnlineLookups.WithLabelValues(viewName, "error").Inc()
		logging.Error().Err(err).Str("view", viewName).Msg("Registry lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rows, found, err := s.online.Get(viewName, entityID)
	if err != nil {
		metrics.OnlineLookups.WithLabelValues(viewName, "error").Inc()
		logging.Error().Err(err).Str("view", viewName).Str("entity_id", entityID).Msg("Online lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		metrics.OnlineLookups.WithLabelValues(viewName, "miss").Inc()
		writeError(w, http.StatusNotFound, fmt.Sprintf("entity %q not found in view %q", entityID, viewName))
		return
	}

	metrics.OnlineLookups.WithLabelValues(viewName, "hit").Inc()
	writeJSON(w, http.StatusOK, featureResponse{
		View:     viewName,
		Version:  view.Version,
		EntityID: entityID,
		Rows:     rows,
	})
}

type affinityResponse struct {
	UserID string                `json:"user_id"`
	Pairs  []models.AffinityPair `json:"pairs"`
}

// handleUserAffinity serves a user's affinity rows straight from the
// warehouse, ordered by product_id.
func (s *Server) handleUserAffinity(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	pairs, err := s.warehouse.UserAffinityPairs(r.Context(), userID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Affinity query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(pairs) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %q has no affinity rows", userID))
		return
	}
	writeJSON(w, http.StatusOK, affinityResponse{UserID: userID, Pairs: pairs})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
