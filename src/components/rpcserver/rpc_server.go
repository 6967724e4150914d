// Package rpcserver serves the node's JSON-RPC API: deploy submission and the
// queries shared with the REST server.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"net/http"
	"time"

	"github.com/AccumulateNetwork/jsonrpc2/v15"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/components/apiserver"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.RpcRequestEmbedder[REv]
	effect.APIServerAnnouncementEmbedder[REv]
	apiserver.Embedder[REv]
}

// RpcServer serves the JSON-RPC API.
type RpcServer[REv any] struct {
	emb  Embedder[REv]
	eb   effect.Builder
	info apiserver.NodeInfo

	methods  jsonrpc2.MethodMap
	validate *validator.Validate

	listener  net.Listener
	server    *http.Server
	logWriter io.Closer
	closed    *atomic.Bool

	logger *logrus.Entry
}

// New binds conf.Address and returns the effect serving it.
func New[REv any](
	conf Config,
	info apiserver.NodeInfo,
	emb Embedder[REv],
	eb effect.Builder,
	logger *logrus.Entry,
) (*RpcServer[REv], effect.Effects[Event], error) {
	listener, err := net.Listen("tcp", conf.Address)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "rpc server listening on %s", conf.Address)
	}

	s := &RpcServer[REv]{
		emb:      emb,
		eb:       eb,
		info:     info,
		validate: validator.New(),
		listener: listener,
		closed:   atomic.NewBool(false),
		logger:   logger.WithField("component", "rpc_server"),
	}
	s.populateMethodTable()

	w := s.logger.WriterLevel(logrus.DebugLevel)
	s.logWriter = w

	mux := http.NewServeMux()
	mux.Handle("/rpc", jsonrpc2.HTTPRequestHandler(s.methods, stdlog.New(w, "", 0)))
	s.server = &http.Server{
		Handler:      mux,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}

	s.logger.WithField("address", listener.Addr().String()).Info("serving json-rpc api")
	return s, s.serve(), nil
}

func (s *RpcServer[REv]) populateMethodTable() {
	s.methods = jsonrpc2.MethodMap{
		"account_put_deploy": s.PutDeploy,
		"chain_get_block":    s.GetBlock,
		"info_get_peers":     s.GetPeers,
		"info_get_status":    s.GetStatus,
		"state_get_balance":  s.GetBalance,
	}
}

// Method returns the handler registered under name, nil if there is none.
func (s *RpcServer[REv]) Method(name string) jsonrpc2.MethodFunc {
	return s.methods[name]
}

// Handler is the server's HTTP handler.
func (s *RpcServer[REv]) Handler() http.Handler {
	return s.server.Handler
}

// Address is the address the server listens on.
func (s *RpcServer[REv]) Address() string {
	return s.listener.Addr().String()
}

// Close stops the server.
func (s *RpcServer[REv]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.server.Close()
	if lerr := s.listener.Close(); err == nil && !errors.Is(lerr, net.ErrClosed) {
		err = lerr
	}
	s.logWriter.Close()
	return err
}

// HandleEvent answers status and peer requests on behalf of RPC methods.
func (s *RpcServer[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Request:
		return apiserver.Answer[REv, Event](eb, s.emb, s.info, ev.APIRequest)
	case Stopped:
		if ev.Err != nil {
			s.logger.WithError(ev.Err).Error("rpc server failed")
		} else {
			s.logger.Debug("rpc server stopped")
		}
		return nil
	default:
		panic(fmt.Sprintf("unhandled rpc server event %T", ev))
	}
}

func (s *RpcServer[REv]) serve() effect.Effects[Event] {
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

func (s *RpcServer[REv]) parse(params json.RawMessage, target interface{}) error {
	if len(params) > 0 {
		if err := json.Unmarshal(params, target); err != nil {
			return validatorError(err)
		}
	}

	if err := s.validate.Struct(target); err != nil {
		return validatorError(err)
	}

	return nil
}

func ask[REv, T any](ctx context.Context, s *RpcServer[REv], build func(effect.Responder[T]) effect.APIRequest) (T, bool) {
	return effect.MakeAPIRequest[REv, T](s.eb, build, func(req effect.APIRequest) REv {
		return s.emb.FromRpcRequest(effect.RpcRequest{APIRequest: req})
	})(ctx)
}

// PutDeploy hands a deploy to the node and waits for it to be accepted.
func (s *RpcServer[REv]) PutDeploy(ctx context.Context, params json.RawMessage) interface{} {
	req := new(PutDeployParams)
	if err := s.parse(params, req); err != nil {
		return err
	}

	responder, answer := effect.NewResponder[error]()
	if _, ok := effect.AnnounceDeployReceived[REv](s.eb, s.emb, req.Deploy, responder)(ctx); !ok {
		return unavailableError()
	}

	select {
	case err := <-answer:
		if err != nil {
			s.logger.WithError(err).WithField("deploy", req.Deploy.Hash).Debug("deploy rejected")
			return deployError(err)
		}
		return PutDeployResult{DeployHash: req.Deploy.Hash}
	case <-ctx.Done():
		return unavailableError()
	}
}

// GetBlock implements chain_get_block.
func (s *RpcServer[REv]) GetBlock(ctx context.Context, params json.RawMessage) interface{} {
	req := new(GetBlockParams)
	if err := s.parse(params, req); err != nil {
		return err
	}

	query := effect.GetAPIBlockRequest{Height: req.Height}
	if req.Hash != "" {
		if req.Height != nil {
			return validatorError(errors.New("block_hash and height are exclusive"))
		}
		hash, err := types.ParseDigest(req.Hash)
		if err != nil {
			return validatorError(err)
		}
		query.Hash = &hash
	}

	block, ok := ask[REv](ctx, s, func(res effect.Responder[*types.Block]) effect.APIRequest {
		query.Responder = res
		return query
	})
	if !ok {
		return unavailableError()
	}
	if block == nil && (query.Hash != nil || query.Height != nil) {
		return notFoundError(query.String())
	}
	return GetBlockResult{Block: apiserver.NewBlock(block)}
}

// GetPeers implements info_get_peers.
func (s *RpcServer[REv]) GetPeers(ctx context.Context, _ json.RawMessage) interface{} {
	peers, ok := ask[REv](ctx, s, func(res effect.Responder[map[types.NodeID]string]) effect.APIRequest {
		return effect.GetAPIPeersRequest{Responder: res}
	})
	if !ok {
		return unavailableError()
	}
	return GetPeersResult{Peers: apiserver.NewPeers(peers)}
}

// GetStatus implements info_get_status.
func (s *RpcServer[REv]) GetStatus(ctx context.Context, _ json.RawMessage) interface{} {
	status, ok := ask[REv](ctx, s, func(res effect.Responder[effect.StatusFeed]) effect.APIRequest {
		return effect.GetStatusRequest{Responder: res}
	})
	if !ok {
		return unavailableError()
	}
	return apiserver.NewStatus(status)
}

// GetBalance implements state_get_balance.
func (s *RpcServer[REv]) GetBalance(ctx context.Context, params json.RawMessage) interface{} {
	req := new(GetBalanceParams)
	if err := s.parse(params, req); err != nil {
		return err
	}
	account, err := types.ParseDigest(req.Account)
	if err != nil {
		return validatorError(err)
	}

	res, ok := ask[REv](ctx, s, func(r effect.Responder[effect.BalanceResult]) effect.APIRequest {
		return effect.GetAPIBalanceRequest{Account: account, Responder: r}
	})
	switch {
	case !ok:
		return unavailableError()
	case res.Err != nil:
		return internalError(res.Err)
	case !res.Found:
		return notFoundError(fmt.Sprintf("account %s", account))
	}
	return apiserver.Balance{Account: account, Balance: res.Balance}
}
