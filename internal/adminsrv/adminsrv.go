// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License Version 2.0.
// Copyright 2026-present the dynamicspout authors.

// Package adminsrv exposes the sideline control plane and consumer
// status over HTTP: POST /sidelines, POST /sidelines/{id}/stop,
// GET /sidelines, GET /consumers, GET /_ping.
package adminsrv

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dynamicspout/spout/internal/filter"
	"github.com/dynamicspout/spout/internal/sideline"
)

const (
	hdrContentType = "Content-Type"
)

// SidelineLister reports the persisted payload identifiers and their
// lifecycle state; adminsrv never touches the persistence adapter
// directly so it can be tested without one.
type SidelineLister interface {
	ListSidelines() ([]SidelineView, error)
}

// ConsumerLister reports per-virtual-consumer status for GET /consumers.
type ConsumerLister interface {
	ListConsumers() ([]ConsumerView, error)
}

// SidelineView is one persisted sideline request as reported over HTTP.
type SidelineView struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// ConsumerView is one virtual consumer's status as reported over HTTP.
type ConsumerView struct {
	ID        string `json:"id"`
	Topic     string `json:"topic"`
	Emitted   int64  `json:"emitted"`
	Acked     int64  `json:"acked"`
	Failed    int64  `json:"failed"`
	Completed bool   `json:"completed"`
}

type predicateRequest struct {
	Name string `json:"name"`
	Expr string `json:"expr"`
}

type sidelineRequestBody struct {
	Steps []predicateRequest `json:"steps"`
}

type sidelineResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the admin HTTP surface. Built once by New, started with
// Start and stopped with Stop — mirroring the teacher pack's HTTP
// admin server lifecycle.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	controller *sideline.Controller
	resolve    sideline.EvalResolver
	sidelines  SidelineLister
	consumers  ConsumerLister
	log        logrus.FieldLogger
	wg         sync.WaitGroup
	errCh      chan error
}

// New builds a Server bound to addr. resolve turns an HTTP request's
// opaque (name, expr) predicate pairs into evaluatable functions.
func New(addr string, controller *sideline.Controller, resolve sideline.EvalResolver, sidelines SidelineLister, consumers ConsumerLister, log logrus.FieldLogger) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind admin HTTP listener")
	}

	s := &Server{
		addr:       addr,
		listener:   listener,
		controller: controller,
		resolve:    resolve,
		sidelines:  sidelines,
		consumers:  consumers,
		log:        log.WithField("component", "adminsrv"),
		errCh:      make(chan error, 1),
	}

	router := mux.NewRouter()
	router.HandleFunc("/sidelines", s.handleStartSideline).Methods(http.MethodPost)
	router.HandleFunc("/sidelines/{id}/stop", s.handleStopSideline).Methods(http.MethodPost)
	router.HandleFunc("/sidelines", s.handleListSidelines).Methods(http.MethodGet)
	router.HandleFunc("/consumers", s.handleListConsumers).Methods(http.MethodGet)
	router.HandleFunc("/_ping", s.handlePing).Methods(http.MethodGet)
	s.httpServer = &http.Server{Handler: router}
	return s, nil
}

// Start triggers an asynchronous server run. Failures surface on ErrorCh.
func (s *Server) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.errCh <- errors.Wrap(err, "admin HTTP server failed")
		}
	}()
}

// ErrorCh reports an asynchronous server failure, if one occurs.
func (s *Server) ErrorCh() <-chan error { return s.errCh }

// Stop closes the listener and waits for the serve goroutine to exit.
func (s *Server) Stop() error {
	err := s.httpServer.Close()
	s.wg.Wait()
	close(s.errCh)
	return err
}

func (s *Server) handleStartSideline(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var body sidelineRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	steps := make([]filter.Step, 0, len(body.Steps))
	for _, p := range body.Steps {
		steps = append(steps, filter.Predicate{Name: p.Name, Expr: p.Expr, Eval: s.resolve(p.Name, p.Expr)})
	}

	id, err := s.controller.Start(sideline.Request{Steps: steps})
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, sidelineResponse{ID: id})
}

func (s *Server) handleStopSideline(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id := mux.Vars(r)["id"]

	if err := s.controller.StopByID(id); err != nil {
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{})
}

func (s *Server) handleListSidelines(w http.ResponseWriter, r *http.Request) {
	views, err := s.sidelines.ListSidelines()
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (s *Server) handleListConsumers(w http.ResponseWriter, r *http.Request) {
	views, err := s.consumers.ListConsumers()
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func respondWithJSON(w http.ResponseWriter, status int, body interface{}) {
	encoded, err := json.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add(hdrContentType, "application/json")
	w.WriteHeader(status)
	w.Write(encoded)
}
