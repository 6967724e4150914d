// Package gossiper spreads deploys through the network.
//
// Every deploy accepted by this node is sent to a few random peers, except the
// one it came from. Deploys gossiped to us are handed on for acceptance the
// first time only.
package gossiper

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
)

// Default configuration values.
const (
	DefaultFanout        = 3
	DefaultSeenCacheSize = 10000
)

// Config ...
type Config struct {
	// Fanout is how many peers each deploy is sent to.
	Fanout int `mapstructure:"fanout"`

	// SeenCacheSize bounds the number of deploy hashes remembered.
	SeenCacheSize int `mapstructure:"seen_cache_size"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		Fanout:        DefaultFanout,
		SeenCacheSize: DefaultSeenCacheSize,
	}
}

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.NetworkRequestEmbedder[REv]
	effect.GossiperAnnouncementEmbedder[REv]
}

// Gossiper spreads client deploys to peers and hands peer deploys to the acceptor.
type Gossiper[REv any] struct {
	conf Config
	emb  Embedder[REv]

	// seen holds the hashes of deploys we gossiped or handed on.
	seen *lru.Cache

	logger *logrus.Entry
}

// New returns a gossiper remembering up to conf.SeenCacheSize deploys.
func New[REv any](conf Config, emb Embedder[REv], logger *logrus.Entry) (*Gossiper[REv], error) {
	if conf.SeenCacheSize <= 0 {
		conf.SeenCacheSize = DefaultSeenCacheSize
	}
	seen, err := lru.New(conf.SeenCacheSize)
	if err != nil {
		return nil, err
	}
	return &Gossiper[REv]{
		conf:   conf,
		emb:    emb,
		seen:   seen,
		logger: logger.WithField("component", "gossiper"),
	}, nil
}

// HandleEvent gossips accepted deploys and forwards received ones.
func (g *Gossiper[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case DeployAccepted:
		g.seen.Add(ev.Deploy.Hash, struct{}{})
		if g.conf.Fanout <= 0 {
			return nil
		}
		var exclude []types.NodeID
		if ev.Source.Peer != nil {
			exclude = append(exclude, *ev.Source.Peer)
		}
		hash := ev.Deploy.Hash
		msg := types.NewDeployGossipMessage(ev.Deploy)
		return effect.Event(effect.Gossip[REv](eb, g.emb, msg, g.conf.Fanout, exclude), func(peers []types.NodeID) Event {
			return Gossiped{Hash: hash, Peers: peers}
		})
	case DeployReceived:
		if ok, _ := g.seen.ContainsOrAdd(ev.Deploy.Hash, struct{}{}); ok {
			return nil
		}
		return effect.Ignore[Event](effect.AnnounceGossipedDeploy[REv](eb, g.emb, ev.Deploy, ev.Sender))
	case Gossiped:
		g.logger.WithFields(logrus.Fields{
			"deploy": ev.Hash,
			"peers":  len(ev.Peers),
		}).Debug("deploy gossiped")
		return nil
	default:
		panic(fmt.Sprintf("unhandled gossiper event %T", ev))
	}
}

// Seen reports whether the deploy was gossiped or handed on already.
func (g *Gossiper[REv]) Seen(hash types.DeployHash) bool {
	return g.seen.Contains(hash)
}
