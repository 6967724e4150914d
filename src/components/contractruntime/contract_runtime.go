// Package contractruntime executes deploys against global state.
//
// Global state is stored in badger as immutable snapshots addressed by their
// state root, so executing a block never disturbs the state of its parent.
// Only native transfers are executed.
package contractruntime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/sirupsen/logrus"
)

// GlobalStateDir is the directory, under the storage path, holding global
// state.
const GlobalStateDir = "global_state"

// Event is a request for the contract runtime.
type Event = effect.ContractRuntimeRequest

// ContractRuntime owns global state.
type ContractRuntime struct {
	db      *badger.DB
	path    string
	conf    Config
	metrics *metrics
	logger  *logrus.Entry

	// commitLock serialises writers.
	commitLock sync.Mutex
	readers    chan struct{}
}

// New validates the config and opens global state under storagePath.
func New(conf common.WithDir[Config], storagePath string, registry prometheus.Registerer, logger *logrus.Entry) (*ContractRuntime, error) {
	if conf.Value.MaxGlobalStateSize <= 0 {
		return nil, &Error{Kind: InvalidConfig, Cause: fmt.Errorf("max_global_state_size must be positive, got %d", conf.Value.MaxGlobalStateSize)}
	}
	if conf.Value.MaxReaders <= 0 {
		return nil, &Error{Kind: InvalidConfig, Cause: fmt.Errorf("max_readers must be positive, got %d", conf.Value.MaxReaders)}
	}

	logger = logger.WithField("component", "contract_runtime")
	path := filepath.Join(conf.Resolve(storagePath), GlobalStateDir)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, &Error{Kind: Open, Cause: errors.Wrap(err, path)}
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(badgerLogger{logger}))
	if err != nil {
		return nil, &Error{Kind: Open, Cause: errors.Wrap(err, path)}
	}

	// Registered last, so a failed open leaves the registry untouched.
	m, err := newMetrics(registry)
	if err != nil {
		db.Close()
		return nil, &Error{Kind: Metrics, Cause: err}
	}

	return &ContractRuntime{
		db:      db,
		path:    path,
		conf:    conf.Value,
		metrics: m,
		logger:  logger,
		readers: make(chan struct{}, conf.Value.MaxReaders),
	}, nil
}

// Close ...
func (c *ContractRuntime) Close() error {
	return c.db.Close()
}

// HandleEvent runs the request in an effect and answers its responder.
func (c *ContractRuntime) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch req := ev.(type) {
	case effect.CommitGenesisRequest:
		return c.serve(func(context.Context) {
			root, err := c.CommitGenesis(req.Chainspec)
			req.Responder.Respond(effect.GenesisResult{StateRoot: root, Err: err})
		})
	case effect.ExecuteRequest:
		return c.serve(func(context.Context) {
			root, results, err := c.Execute(req.ParentStateRoot, req.Deploys)
			req.Responder.Respond(effect.ExecuteResult{StateRoot: root, Results: results, Err: err})
		})
	case effect.GetBalanceRequest:
		return c.serve(func(ctx context.Context) {
			select {
			case c.readers <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-c.readers }()
			balance, found, err := c.Balance(req.StateRoot, req.Account)
			req.Responder.Respond(effect.BalanceResult{Balance: balance, Found: found, Err: err})
		})
	default:
		panic(fmt.Sprintf("unhandled contract runtime request %T", ev))
	}
}

func (c *ContractRuntime) serve(work func(ctx context.Context)) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		work(ctx)
		return nil
	}}
}

// CommitGenesis writes the genesis accounts and returns the genesis state
// root. Committing the same chainspec twice yields the same root.
func (c *ContractRuntime) CommitGenesis(cs *chainspec.Chainspec) (types.Digest, error) {
	start := time.Now()
	defer func() { c.metrics.genesis.Observe(time.Since(start).Seconds()) }()

	s := &snapshot{}
	for _, a := range cs.Genesis.Accounts {
		if s.find(a.AccountHash) >= 0 {
			return types.Digest{}, fmt.Errorf("duplicate genesis account %s", a.AccountHash)
		}
		s.set(a.AccountHash, a.Balance)
	}

	c.commitLock.Lock()
	defer c.commitLock.Unlock()

	var root types.Digest
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		root, err = storeSnapshot(txn, s)
		return err
	})
	if err != nil {
		return types.Digest{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"accounts":   len(s.Accounts),
		"state_root": root,
	}).Info("genesis committed")
	return root, nil
}

// Execute applies deploys in order on top of parent. Failed deploys leave
// state untouched and are reported in their result.
func (c *ContractRuntime) Execute(parent types.Digest, deploys []*types.Deploy) (types.Digest, []types.ExecutionResult, error) {
	start := time.Now()
	defer func() { c.metrics.execute.Observe(time.Since(start).Seconds()) }()

	c.commitLock.Lock()
	defer c.commitLock.Unlock()

	if err := c.checkSize(); err != nil {
		return types.Digest{}, nil, err
	}

	var (
		root    types.Digest
		results = make([]types.ExecutionResult, 0, len(deploys))
	)
	err := c.db.Update(func(txn *badger.Txn) error {
		results = results[:0]
		prev, ok, err := loadSnapshot(txn, parent)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown parent state root %s", parent)
		}

		s := prev.clone()
		for _, d := range deploys {
			res := types.ExecutionResult{DeployHash: d.Hash}
			if err := applyTransfer(s, d); err != nil {
				res.Error = err.Error()
				c.metrics.failures.Inc()
			}
			c.metrics.deploys.Inc()
			results = append(results, res)
		}

		root, err = storeSnapshot(txn, s)
		return err
	})
	if err != nil {
		return types.Digest{}, nil, err
	}
	return root, results, nil
}

func applyTransfer(s *snapshot, d *types.Deploy) error {
	from, err := d.AccountHash()
	if err != nil {
		return err
	}
	balance, ok := s.balance(from)
	if !ok {
		return fmt.Errorf("unknown account %s", from)
	}
	remaining, ok := balance.Sub(d.Session.Amount)
	if !ok {
		return fmt.Errorf("insufficient funds: balance %s, amount %s", balance, d.Session.Amount)
	}
	s.set(from, remaining)

	target, _ := s.balance(d.Session.Target)
	s.set(d.Session.Target, target.Add(d.Session.Amount))
	return nil
}

// Balance reads account under root.
func (c *ContractRuntime) Balance(root types.Digest, account types.AccountHash) (types.Motes, bool, error) {
	var (
		balance types.Motes
		found   bool
	)
	err := c.db.View(func(txn *badger.Txn) error {
		s, ok, err := loadSnapshot(txn, root)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown state root %s", root)
		}
		balance, found = s.balance(account)
		return nil
	})
	return balance, found, err
}

func (c *ContractRuntime) checkSize() error {
	lsm, vlog := c.db.Size()
	if size := lsm + vlog; size > c.conf.MaxGlobalStateSize {
		return &Error{Kind: StateFull, Cause: fmt.Errorf("%d bytes used of %d", size, c.conf.MaxGlobalStateSize)}
	}
	return nil
}

type badgerLogger struct {
	*logrus.Entry
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Entry.Warnf(format, args...)
}
