// Package eventstreamserver pushes block and deploy events to HTTP clients as
// server-sent events.
//
// Every event gets an id from a single increasing sequence. A client
// reconnecting with a Last-Event-ID header, or a start_from query parameter,
// is first sent the remembered events that followed it.
package eventstreamserver

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
	"github.com/rs/cors"
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// DeployAcceptedData ...
type DeployAcceptedData struct {
	DeployHash types.DeployHash `json:"deploy_hash"`
	Account    []byte           `json:"account"`
	Timestamp  types.Timestamp  `json:"timestamp"`
	TTL        time.Duration    `json:"ttl"`
}

// Data is the payload of one server-sent event. Exactly one field is set.
type Data struct {
	ApiVersion     string              `json:"ApiVersion,omitempty"`
	BlockAdded     *apiserver.Block    `json:"BlockAdded,omitempty"`
	DeployAccepted *DeployAcceptedData `json:"DeployAccepted,omitempty"`
}

// EventStreamServer streams node events to HTTP clients as server-sent events.
type EventStreamServer struct {
	apiVersion string
	broker     *broker

	listener net.Listener
	server   *http.Server
	closed   *atomic.Bool

	logger *logrus.Entry
}

// New binds conf.Address and returns the effect serving it. apiVersion is
// sent to every client when it connects.
func New(conf Config, apiVersion string, logger *logrus.Entry) (*EventStreamServer, effect.Effects[Event], error) {
	listener, err := net.Listen("tcp", conf.Address)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "event stream server listening on %s", conf.Address)
	}

	s := &EventStreamServer{
		apiVersion: apiVersion,
		broker:     newBroker(conf.EventStreamBufferLength, conf.SubscriberBufferSize),
		listener:   listener,
		closed:     atomic.NewBool(false),
		logger:     logger.WithField("component", "event_stream_server"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/events", s.StreamEvents).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	// No write timeout: responses are unbounded streams.
	s.server = &http.Server{
		Handler:     c.Handler(r),
		ReadTimeout: time.Second * 15,
		IdleTimeout: time.Second * 60,
	}

	s.logger.WithField("address", listener.Addr().String()).Info("serving event stream")
	return s, s.serve(), nil
}

// Handler is the server's HTTP handler, CORS included.
func (s *EventStreamServer) Handler() http.Handler {
	return s.server.Handler
}

// Address is the address the server listens on.
func (s *EventStreamServer) Address() string {
	return s.listener.Addr().String()
}

// Subscribers is the number of connected clients.
func (s *EventStreamServer) Subscribers() int {
	return s.broker.count()
}

// Close disconnects every client and stops the server.
func (s *EventStreamServer) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.broker.close()
	err := s.server.Close()
	if lerr := s.listener.Close(); err == nil && !errors.Is(lerr, net.ErrClosed) {
		err = lerr
	}
	return err
}

// HandleEvent publishes events to subscribers.
func (s *EventStreamServer) HandleEvent(_ effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case BlockAdded:
		s.publish(Data{BlockAdded: apiserver.NewBlock(ev.Block)})
	case DeployAccepted:
		s.publish(Data{DeployAccepted: &DeployAcceptedData{
			DeployHash: ev.Deploy.Hash,
			Account:    ev.Deploy.Header.Account,
			Timestamp:  ev.Deploy.Header.Timestamp,
			TTL:        ev.Deploy.Header.TTL,
		}})
	case Stopped:
		if ev.Err != nil {
			s.logger.WithError(ev.Err).Error("event stream server failed")
		} else {
			s.logger.Debug("event stream server stopped")
		}
	default:
		panic(fmt.Sprintf("unhandled event stream server event %T", ev))
	}
	return nil
}

func (s *EventStreamServer) publish(d Data) {
	data, err := json.Marshal(d)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode event")
		return
	}
	id, dropped := s.broker.publish(data)
	if dropped > 0 {
		s.logger.WithFields(logrus.Fields{
			"id":      id,
			"dropped": dropped,
		}).Warn("disconnected slow event stream clients")
	}
}

func (s *EventStreamServer) serve() effect.Effects[Event] {
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

func lastEventID(r *http.Request) (*uint64, error) {
	param := r.Header.Get("Last-Event-ID")
	if param == "" {
		param = r.URL.Query().Get("start_from")
	}
	if param == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// StreamEvents serves /events.
func (s *EventStreamServer) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	last, err := lastEventID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, ch, replay := s.broker.subscribe(last)
	defer s.broker.unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(Data{ApiVersion: s.apiVersion})
	fmt.Fprintf(w, "data: %s\n\n", hello)
	for _, m := range replay {
		writeMessage(w, m)
	}
	flusher.Flush()

	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return
			}
			writeMessage(w, m)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeMessage(w http.ResponseWriter, m message) {
	fmt.Fprintf(w, "id: %d\ndata: %s\n\n", m.id, m.data)
}
