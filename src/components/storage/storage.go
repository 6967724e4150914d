// Package storage persists blocks, deploys and chainspecs in badger.
//
// The component holds no in-flight state of its own: every request is served
// by an effect that runs the database transaction and answers the request's
// responder.
package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	lru "github.com/hashicorp/golang-lru"
	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/sirupsen/logrus"
)

const (
	blockPrefix     = "block"
	heightPrefix    = "height"
	deployPrefix    = "deploy"
	chainspecPrefix = "chainspec"
	highestKey      = "meta/highest"

	maxConflictRetries = 8
)

// Event is a request for storage.
type Event = effect.StorageRequest

// Storage is the badger backed store of blocks, deploys and chainspecs.
type Storage struct {
	db     *badger.DB
	path   string
	blocks *lru.Cache
	logger *logrus.Entry
}

// New opens, or creates, the database under the configured path.
func New(conf common.WithDir[Config], logger *logrus.Entry) (*Storage, error) {
	path := conf.Resolve(conf.Value.Path)
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, newError(CreateDir, path, err)
	}

	cacheSize := conf.Value.MaxBlockCacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultMaxBlockCacheSize
	}
	blocks, err := lru.New(cacheSize)
	if err != nil {
		return nil, newError(Cache, path, err)
	}

	logger = logger.WithField("component", "storage")
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, newError(Open, path, err)
	}

	logger.WithField("path", path).Debug("storage opened")
	return &Storage{
		db:     db,
		path:   path,
		blocks: blocks,
		logger: logger,
	}, nil
}

// Path ...
func (s *Storage) Path() string {
	return s.path
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// HandleEvent serves ev in an effect. Database failures are fatal.
func (s *Storage) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		if err := s.serve(ev); err != nil {
			s.logger.WithError(err).WithField("request", ev.String()).Error("storage request failed")
			eb.Fatal(newError(Internal, s.path, err))(ctx)
		}
		return nil
	}}
}

func (s *Storage) serve(ev Event) error {
	switch req := ev.(type) {
	case effect.PutBlockRequest:
		added, err := s.PutBlock(req.Block)
		if err != nil {
			return err
		}
		req.Responder.Respond(added)
	case effect.GetBlockRequest:
		block, err := s.GetBlock(req.Hash)
		if err != nil {
			return err
		}
		req.Responder.Respond(block)
	case effect.GetBlockAtHeightRequest:
		block, err := s.GetBlockAtHeight(req.Height)
		if err != nil {
			return err
		}
		req.Responder.Respond(block)
	case effect.GetHighestBlockRequest:
		block, err := s.GetHighestBlock()
		if err != nil {
			return err
		}
		req.Responder.Respond(block)
	case effect.PutDeployRequest:
		added, err := s.PutDeploy(req.Deploy)
		if err != nil {
			return err
		}
		req.Responder.Respond(added)
	case effect.GetDeploysRequest:
		deploys, err := s.GetDeploys(req.Hashes)
		if err != nil {
			return err
		}
		req.Responder.Respond(deploys)
	case effect.PutChainspecRequest:
		if err := s.PutChainspec(req.Chainspec); err != nil {
			return err
		}
		req.Responder.Respond(struct{}{})
	case effect.GetChainspecRequest:
		c, err := s.GetChainspec(req.Version)
		if err != nil {
			return err
		}
		req.Responder.Respond(c)
	default:
		panic(fmt.Sprintf("unhandled storage request %T", ev))
	}
	return nil
}

func blockKey(hash types.BlockHash) []byte {
	return []byte(fmt.Sprintf("%s/%s", blockPrefix, hash.Hex()))
}

func heightKey(height uint64) []byte {
	return []byte(fmt.Sprintf("%s/%020d", heightPrefix, height))
}

func deployKey(hash types.DeployHash) []byte {
	return []byte(fmt.Sprintf("%s/%s", deployPrefix, hash.Hex()))
}

func chainspecKey(version string) []byte {
	return []byte(fmt.Sprintf("%s/%s", chainspecPrefix, version))
}

// PutBlock stores block and indexes it by height. It reports false if the
// block was already stored.
func (s *Storage) PutBlock(block *types.Block) (bool, error) {
	val, err := types.Marshal(block)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.update(func(txn *badger.Txn) error {
		added = false
		key := blockKey(block.Hash)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !isDBKeyNotFound(err) {
			return err
		}

		if err := txn.Set(key, val); err != nil {
			return err
		}
		if err := txn.Set(heightKey(block.Header.Height), block.Hash[:]); err != nil {
			return err
		}

		highest, ok, err := getHighest(txn)
		if err != nil {
			return err
		}
		if !ok || block.Header.Height > highest {
			if err := txn.Set([]byte(highestKey), heightKey(block.Header.Height)); err != nil {
				return err
			}
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.blocks.Add(block.Hash, block)
	return added, nil
}

// GetBlock returns nil if the block is unknown.
func (s *Storage) GetBlock(hash types.BlockHash) (*types.Block, error) {
	if cached, ok := s.blocks.Get(hash); ok {
		return cached.(*types.Block), nil
	}

	var block *types.Block
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		block, err = getBlock(txn, hash)
		return err
	})
	if err != nil || block == nil {
		return nil, err
	}

	s.blocks.Add(hash, block)
	return block, nil
}

// GetBlockAtHeight returns nil if no block is stored at height.
func (s *Storage) GetBlockAtHeight(height uint64) (*types.Block, error) {
	var hash types.BlockHash
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(heightKey(height))
		if isDBKeyNotFound(err) {
			return nil
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		copy(hash[:], val)
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return s.GetBlock(hash)
}

// GetHighestBlock returns nil on an empty chain.
func (s *Storage) GetHighestBlock() (*types.Block, error) {
	var (
		height uint64
		found  bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		height, found, err = getHighest(txn)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return s.GetBlockAtHeight(height)
}

// PutDeploy reports false if the deploy was already stored.
func (s *Storage) PutDeploy(d *types.Deploy) (bool, error) {
	val, err := types.Marshal(d)
	if err != nil {
		return false, err
	}

	var added bool
	err = s.update(func(txn *badger.Txn) error {
		added = false
		key := deployKey(d.Hash)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !isDBKeyNotFound(err) {
			return err
		}
		added = true
		return txn.Set(key, val)
	})
	return added, err
}

// GetDeploys returns one entry per hash, nil where the deploy is unknown.
func (s *Storage) GetDeploys(hashes []types.DeployHash) ([]*types.Deploy, error) {
	deploys := make([]*types.Deploy, len(hashes))
	err := s.db.View(func(txn *badger.Txn) error {
		for i, h := range hashes {
			item, err := txn.Get(deployKey(h))
			if isDBKeyNotFound(err) {
				continue
			} else if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			d := new(types.Deploy)
			if err := types.Unmarshal(val, d); err != nil {
				return err
			}
			deploys[i] = d
		}
		return nil
	})
	return deploys, err
}

// PutChainspec stores c under its genesis protocol version.
func (s *Storage) PutChainspec(c *chainspec.Chainspec) error {
	val, err := types.Marshal(c)
	if err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set(chainspecKey(c.Genesis.ProtocolVersion.String()), val)
	})
}

// GetChainspec returns nil if nothing is stored for version.
func (s *Storage) GetChainspec(version string) (*chainspec.Chainspec, error) {
	var c *chainspec.Chainspec
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chainspecKey(version))
		if isDBKeyNotFound(err) {
			return nil
		} else if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		c = new(chainspec.Chainspec)
		return types.Unmarshal(val, c)
	})
	return c, err
}

// update runs fn in a read-write transaction, retrying on conflicts with
// concurrent writers.
func (s *Storage) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxConflictRetries; i++ {
		err = s.db.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
	return err
}

func getBlock(txn *badger.Txn, hash types.BlockHash) (*types.Block, error) {
	item, err := txn.Get(blockKey(hash))
	if isDBKeyNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	block := new(types.Block)
	if err := types.Unmarshal(val, block); err != nil {
		return nil, err
	}
	return block, nil
}

func getHighest(txn *badger.Txn) (uint64, bool, error) {
	item, err := txn.Get([]byte(highestKey))
	if isDBKeyNotFound(err) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, false, err
	}
	var height uint64
	if _, err := fmt.Sscanf(string(val), heightPrefix+"/%d", &height); err != nil {
		return 0, false, err
	}
	return height, true, nil
}

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

type badgerLogger struct {
	*logrus.Entry
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Entry.Warnf(format, args...)
}
