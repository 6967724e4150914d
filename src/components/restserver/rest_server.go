// Package restserver serves the node's status, blocks, peers and metrics over
// HTTP.
package restserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.RestRequestEmbedder[REv]
	apiserver.Embedder[REv]
}

// RestServer serves node information over HTTP.
type RestServer[REv any] struct {
	emb  Embedder[REv]
	eb   effect.Builder
	info apiserver.NodeInfo

	listener net.Listener
	server   *http.Server
	closed   *atomic.Bool

	logger *logrus.Entry
}

// New binds conf.Address and returns the effect serving it. gatherer backs
// /metrics and may be nil.
func New[REv any](
	conf Config,
	info apiserver.NodeInfo,
	emb Embedder[REv],
	eb effect.Builder,
	gatherer prometheus.Gatherer,
	logger *logrus.Entry,
) (*RestServer[REv], effect.Effects[Event], error) {
	listener, err := net.Listen("tcp", conf.Address)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "rest server listening on %s", conf.Address)
	}

	s := &RestServer[REv]{
		emb:      emb,
		eb:       eb,
		info:     info,
		listener: listener,
		closed:   atomic.NewBool(false),
		logger:   logger.WithField("component", "rest_server"),
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodOptions,
			http.MethodHead,
		},
	})

	s.server = &http.Server{
		Handler:      c.Handler(s.router(gatherer)),
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}

	s.logger.WithField("address", listener.Addr().String()).Info("serving rest api")
	return s, s.serve(), nil
}

func (s *RestServer[REv]) router(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", s.GetStatus).Methods(http.MethodGet)
	r.HandleFunc("/blocks/latest", s.GetLatestBlock).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{height:[0-9]+}", s.GetBlock).Methods(http.MethodGet)
	r.HandleFunc("/peers", s.GetPeers).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/balance", s.GetBalance).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Handler is the server's HTTP handler, CORS included.
func (s *RestServer[REv]) Handler() http.Handler {
	return s.server.Handler
}

// Address is the address the server listens on.
func (s *RestServer[REv]) Address() string {
	return s.listener.Addr().String()
}

// Close stops the server.
func (s *RestServer[REv]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.server.Close()
	if lerr := s.listener.Close(); err == nil && !errors.Is(lerr, net.ErrClosed) {
		err = lerr
	}
	return err
}

// HandleEvent answers status and peer requests on behalf of HTTP handlers.
func (s *RestServer[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Request:
		return apiserver.Answer[REv, Event](eb, s.emb, s.info, ev.APIRequest)
	case Stopped:
		if ev.Err != nil {
			s.logger.WithError(ev.Err).Error("rest server failed")
		} else {
			s.logger.Debug("rest server stopped")
		}
		return nil
	default:
		panic(fmt.Sprintf("unhandled rest server event %T", ev))
	}
}

func (s *RestServer[REv]) serve() effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		stop := context.AfterFunc(ctx, func() { s.Close() })
		defer stop()
		err := s.server.Serve(s.listener)
		if errors.Is(err, http.ErrServerClosed) || s.closed.Load() {
			err = nil
		}
		return []Event{Stopped{Err: err}}
	}}
}

// ask issues build on the reactor's API queue and waits for the answer for
// as long as the HTTP request lives.
func ask[REv, T any](s *RestServer[REv], r *http.Request, build func(effect.Responder[T]) effect.APIRequest) (T, bool) {
	return effect.MakeAPIRequest[REv, T](s.eb, build, func(req effect.APIRequest) REv {
		return s.emb.FromRestRequest(effect.RestRequest{APIRequest: req})
	})(r.Context())
}

// GetStatus serves /status.
func (s *RestServer[REv]) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, ok := ask[REv](s, r, func(res effect.Responder[effect.StatusFeed]) effect.APIRequest {
		return effect.GetStatusRequest{Responder: res}
	})
	if !ok {
		s.unavailable(w)
		return
	}
	s.writeJSON(w, apiserver.NewStatus(status))
}

// GetLatestBlock serves /blocks/latest.
func (s *RestServer[REv]) GetLatestBlock(w http.ResponseWriter, r *http.Request) {
	s.returnBlock(w, r, effect.GetAPIBlockRequest{})
}

// GetBlock serves /blocks/{height}.
func (s *RestServer[REv]) GetBlock(w http.ResponseWriter, r *http.Request) {
	param := mux.Vars(r)["height"]

	height, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		s.logger.WithError(err).Debugf("Parsing height parameter %s", param)

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	s.returnBlock(w, r, effect.GetAPIBlockRequest{Height: &height})
}

func (s *RestServer[REv]) returnBlock(w http.ResponseWriter, r *http.Request, req effect.GetAPIBlockRequest) {
	block, ok := ask[REv](s, r, func(res effect.Responder[*types.Block]) effect.APIRequest {
		req.Responder = res
		return req
	})
	if !ok {
		s.unavailable(w)
		return
	}
	if block == nil {
		http.Error(w, "block not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, apiserver.NewBlock(block))
}

// GetPeers serves /peers.
func (s *RestServer[REv]) GetPeers(w http.ResponseWriter, r *http.Request) {
	peers, ok := ask[REv](s, r, func(res effect.Responder[map[types.NodeID]string]) effect.APIRequest {
		return effect.GetAPIPeersRequest{Responder: res}
	})
	if !ok {
		s.unavailable(w)
		return
	}
	s.writeJSON(w, apiserver.NewPeers(peers))
}

// GetBalance serves /accounts/{account}/balance at the tip state root.
func (s *RestServer[REv]) GetBalance(w http.ResponseWriter, r *http.Request) {
	param := mux.Vars(r)["account"]

	account, err := types.ParseDigest(param)
	if err != nil {
		s.logger.WithError(err).Debugf("Parsing account parameter %s", param)

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	res, ok := ask[REv](s, r, func(res effect.Responder[effect.BalanceResult]) effect.APIRequest {
		return effect.GetAPIBalanceRequest{Account: account, Responder: res}
	})
	switch {
	case !ok:
		s.unavailable(w)
	case res.Err != nil:
		s.logger.WithError(res.Err).Errorf("Retrieving balance of %s", account)
		http.Error(w, res.Err.Error(), http.StatusInternalServerError)
	case !res.Found:
		http.Error(w, "account not found", http.StatusNotFound)
	default:
		s.writeJSON(w, apiserver.Balance{Account: account, Balance: res.Balance})
	}
}

func (s *RestServer[REv]) unavailable(w http.ResponseWriter) {
	http.Error(w, "node is shutting down", http.StatusServiceUnavailable)
}

func (s *RestServer[REv]) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Debug("Writing response")
	}
}
