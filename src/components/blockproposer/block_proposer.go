// Package blockproposer buffers accepted deploys until consensus includes them
// in a block.
package blockproposer

import (
	"fmt"
	"sort"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/sirupsen/logrus"
)

// DefaultMaxPending ...
const DefaultMaxPending = 10000

// Config ...
type Config struct {
	// MaxPending bounds the buffer. Deploys arriving when it is full are
	// dropped.
	MaxPending int `mapstructure:"max_pending"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{MaxPending: DefaultMaxPending}
}

type pendingDeploy struct {
	seq    uint64
	expiry types.Timestamp
}

// BlockProposer buffers accepted deploys until they are finalized.
type BlockProposer struct {
	conf Config

	pending map[types.DeployHash]pendingDeploy
	nextSeq uint64

	// finalized remembers included deploys until they expire, so that late
	// copies are not proposed again.
	finalized map[types.DeployHash]types.Timestamp

	logger *logrus.Entry
}

// New returns an empty proposer.
func New(conf Config, logger *logrus.Entry) *BlockProposer {
	if conf.MaxPending <= 0 {
		conf.MaxPending = DefaultMaxPending
	}
	return &BlockProposer{
		conf:      conf,
		pending:   make(map[types.DeployHash]pendingDeploy),
		finalized: make(map[types.DeployHash]types.Timestamp),
		logger:    logger.WithField("component", "block_proposer"),
	}
}

// HandleEvent buffers, lists and prunes deploys.
func (p *BlockProposer) HandleEvent(_ effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Request:
		p.prune(ev.Request.CurrentTime)
		ev.Request.Responder.Respond(p.ListForInclusion(ev.Request.Max, ev.Request.CurrentTime))
	case Accepted:
		p.Add(ev.Deploy)
	case Finalized:
		p.MarkFinalized(ev.Block)
	default:
		panic(fmt.Sprintf("unhandled block proposer event %T", ev))
	}
	return nil
}

// Add buffers d unless it is already known or the buffer is full.
func (p *BlockProposer) Add(d *types.Deploy) bool {
	if _, ok := p.pending[d.Hash]; ok {
		return false
	}
	if _, ok := p.finalized[d.Hash]; ok {
		return false
	}
	if len(p.pending) >= p.conf.MaxPending {
		p.logger.WithField("deploy", d.Hash).Warn("deploy buffer full, dropping deploy")
		return false
	}
	p.pending[d.Hash] = pendingDeploy{
		seq:    p.nextSeq,
		expiry: d.Header.Timestamp.Add(d.Header.TTL),
	}
	p.nextSeq++
	return true
}

// ListForInclusion returns up to max unexpired pending deploys, oldest first.
// They stay pending until a block including them is finalized.
func (p *BlockProposer) ListForInclusion(max int, now types.Timestamp) []types.DeployHash {
	type entry struct {
		hash types.DeployHash
		seq  uint64
	}
	var live []entry
	for h, pd := range p.pending {
		if pd.expiry >= now {
			live = append(live, entry{h, pd.seq})
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	if max >= 0 && len(live) > max {
		live = live[:max]
	}
	out := make([]types.DeployHash, len(live))
	for i, e := range live {
		out[i] = e.hash
	}
	return out
}

// MarkFinalized drops the block's deploys from the buffer.
func (p *BlockProposer) MarkFinalized(fb *types.FinalizedBlock) {
	for _, h := range fb.Deploys {
		expiry := fb.Timestamp
		if pd, ok := p.pending[h]; ok {
			expiry = pd.expiry
			delete(p.pending, h)
		}
		p.finalized[h] = expiry
	}
}

// Pending is the number of buffered deploys.
func (p *BlockProposer) Pending() int {
	return len(p.pending)
}

func (p *BlockProposer) prune(now types.Timestamp) {
	for h, pd := range p.pending {
		if pd.expiry < now {
			delete(p.pending, h)
		}
	}
	for h, expiry := range p.finalized {
		if expiry < now {
			delete(p.finalized, h)
		}
	}
}
