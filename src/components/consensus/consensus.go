// Package consensus finalizes blocks with a round-robin leader schedule.
//
// Time since genesis is cut into rounds of the chainspec's round length. The
// leader of a round is validators[round mod n], validators being the bonded
// genesis accounts sorted by account hash. The leader proposes the next
// height with deploys from the block proposer, signs it and broadcasts it;
// everyone else finalizes a proposal once it checks out and the block
// validator agrees. Proposals for rounds at or below the last finalized round
// are stale and dropped.
package consensus

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/sirupsen/logrus"
)

// Config tunes consensus beyond what the chainspec fixes.
type Config struct {
	// MaxRoundDrift is how many rounds ahead of our clock a proposal may be.
	MaxRoundDrift uint64 `mapstructure:"max_round_drift"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{MaxRoundDrift: 1}
}

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.NetworkRequestEmbedder[REv]
	effect.BlockProposerRequestEmbedder[REv]
	effect.BlockValidationRequestEmbedder[REv]
	effect.ConsensusAnnouncementEmbedder[REv]
}

// Consensus runs round-robin leader rounds over the bonded validators.
type Consensus[REv any] struct {
	conf Config
	emb  Embedder[REv]

	// key is nil on nodes that only follow.
	key        *ecdsa.PrivateKey
	ourAccount types.AccountHash

	validators  []types.AccountHash
	genesis     types.Timestamp
	roundLength time.Duration
	maxDeploys  int

	nextHeight     uint64
	finalizedRound uint64
	anyFinalized   bool
	proposedRound  *uint64

	now     func() types.Timestamp
	metrics *metrics
	logger  *logrus.Entry
}

// New continues from tip, or from genesis if tip is nil, and returns the
// effect waiting for the first round.
func New[REv any](
	conf Config,
	c *chainspec.Chainspec,
	key *ecdsa.PrivateKey,
	tip *types.Block,
	emb Embedder[REv],
	eb effect.Builder,
	registry prometheus.Registerer,
	logger *logrus.Entry,
) (*Consensus[REv], effect.Effects[Event], error) {
	if c.Highway.RoundLength < time.Millisecond {
		return nil, nil, &Error{Kind: InvalidConfig, Cause: errors.Errorf("round length %s is below 1ms", c.Highway.RoundLength)}
	}
	vs := c.Validators()
	if len(vs) == 0 {
		return nil, nil, &Error{Kind: InvalidConfig, Cause: errors.New("no validators")}
	}
	m, err := newMetrics(registry)
	if err != nil {
		return nil, nil, &Error{Kind: Metrics, Cause: err}
	}

	cs := &Consensus[REv]{
		conf:        conf,
		emb:         emb,
		key:         key,
		genesis:     c.Genesis.Timestamp,
		roundLength: c.Highway.RoundLength,
		maxDeploys:  c.Deploys.BlockMaxDeployCount,
		now:         types.Now,
		metrics:     m,
		logger:      logger.WithField("component", "consensus"),
	}
	for _, v := range vs {
		cs.validators = append(cs.validators, v.AccountHash)
	}
	if key != nil {
		cs.ourAccount = types.AccountHash(keys.AccountHash(&key.PublicKey))
		cs.logger = cs.logger.WithField("account", cs.ourAccount)
		if !cs.IsValidator() {
			cs.logger.Warn("our key is not a validator, following only")
		}
	}
	if tip != nil {
		cs.nextHeight = tip.Header.Height + 1
		cs.finalizedRound = tip.Header.Round
		cs.anyFinalized = true
	}
	return cs, cs.scheduleTick(eb), nil
}

// HandleEvent advances rounds on ticks and processes proposals.
func (c *Consensus[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Tick:
		return effect.Merge(c.scheduleTick(eb), c.maybePropose(eb))
	case DeploysForProposal:
		return c.propose(eb, ev)
	case MessageReceived:
		return c.handleMessage(eb, ev)
	case Validated:
		if !ev.Valid {
			c.metrics.proposals.WithLabelValues("invalid").Inc()
			c.logger.WithFields(logrus.Fields{
				"round":  ev.Proposal.Block.Round,
				"sender": ev.Sender,
			}).Info("block validator rejected proposal")
			return nil
		}
		fb := ev.Proposal.Block
		if err := c.checkOpen(&fb); err != nil {
			c.metrics.proposals.WithLabelValues("stale").Inc()
			c.logger.WithError(err).Debug("dropping validated proposal")
			return nil
		}
		c.metrics.proposals.WithLabelValues("accepted").Inc()
		return c.finalize(eb, &fb)
	case BlockAdded:
		h := ev.Block.Header
		if h.Height >= c.nextHeight {
			c.nextHeight = h.Height + 1
		}
		if !c.anyFinalized || h.Round > c.finalizedRound {
			c.finalizedRound = h.Round
			c.anyFinalized = true
		}
		return nil
	default:
		panic(fmt.Sprintf("unhandled consensus event %T", ev))
	}
}

func (c *Consensus[REv]) maybePropose(eb effect.Builder) effect.Effects[Event] {
	now := c.now()
	round, ok := c.roundAt(now)
	if !ok || c.key == nil || c.Leader(round) != c.ourAccount {
		return nil
	}
	if c.proposedRound != nil && *c.proposedRound >= round {
		return nil
	}
	if c.anyFinalized && round <= c.finalizedRound {
		return nil
	}
	c.proposedRound = &round

	return effect.Event(effect.RequestProposableDeploys[REv](eb, c.emb, c.maxDeploys, now), func(ds []types.DeployHash) Event {
		return DeploysForProposal{Round: round, Timestamp: now, Deploys: ds}
	})
}

func (c *Consensus[REv]) propose(eb effect.Builder, ev DeploysForProposal) effect.Effects[Event] {
	fb := types.FinalizedBlock{
		Round:     ev.Round,
		Height:    c.nextHeight,
		Timestamp: ev.Timestamp,
		Deploys:   ev.Deploys,
		Proposer:  c.ourAccount,
	}
	if err := c.checkOpen(&fb); err != nil {
		c.logger.WithError(err).Debug("dropping own proposal")
		return nil
	}
	p, err := NewProposal(c.key, fb)
	if err != nil {
		return effect.Ignore[Event](eb.Fatal(err))
	}
	msg, err := p.Message()
	if err != nil {
		return effect.Ignore[Event](eb.Fatal(err))
	}

	c.logger.WithFields(logrus.Fields{
		"round":   fb.Round,
		"height":  fb.Height,
		"deploys": len(fb.Deploys),
	}).Info("proposing block")

	return effect.Merge(
		effect.Ignore[Event](effect.Broadcast[REv](eb, c.emb, msg)),
		c.finalize(eb, &fb),
	)
}

func (c *Consensus[REv]) handleMessage(eb effect.Builder, ev MessageReceived) effect.Effects[Event] {
	p, err := DecodeProposal(ev.Payload)
	if err == nil {
		err = c.checkProposal(p)
	}
	if err != nil {
		c.metrics.proposals.WithLabelValues("rejected").Inc()
		c.logger.WithError(err).WithField("sender", ev.Sender).Info("dropping proposal")
		return nil
	}
	fb := p.Block
	sender := ev.Sender
	return effect.Event(effect.ValidateBlock[REv](eb, c.emb, sender, &fb), func(valid bool) Event {
		return Validated{Sender: sender, Proposal: p, Valid: valid}
	})
}

func (c *Consensus[REv]) checkProposal(p *Proposal) error {
	fb := &p.Block
	if err := p.Verify(); err != nil {
		return err
	}
	if leader := c.Leader(fb.Round); leader != fb.Proposer {
		return errors.Errorf("%s is not the leader of round %d", fb.Proposer, fb.Round)
	}
	if err := c.checkOpen(fb); err != nil {
		return err
	}
	current, _ := c.roundAt(c.now())
	if fb.Round > current+c.conf.MaxRoundDrift {
		return errors.Errorf("round %d is too far ahead of %d", fb.Round, current)
	}
	return nil
}

// checkOpen fails for blocks that are not the next one to finalize.
func (c *Consensus[REv]) checkOpen(fb *types.FinalizedBlock) error {
	if c.anyFinalized && fb.Round <= c.finalizedRound {
		return errors.Errorf("round %d is stale", fb.Round)
	}
	if fb.Height != c.nextHeight {
		return errors.Errorf("height %d, expected %d", fb.Height, c.nextHeight)
	}
	return nil
}

func (c *Consensus[REv]) finalize(eb effect.Builder, fb *types.FinalizedBlock) effect.Effects[Event] {
	c.finalizedRound = fb.Round
	c.anyFinalized = true
	c.nextHeight = fb.Height + 1
	c.metrics.finalizedHeight.Set(float64(fb.Height))

	c.logger.WithFields(logrus.Fields{
		"round":    fb.Round,
		"height":   fb.Height,
		"proposer": fb.Proposer,
	}).Info("block finalized")

	return effect.Ignore[Event](effect.AnnounceFinalized[REv](eb, c.emb, fb))
}

func (c *Consensus[REv]) scheduleTick(eb effect.Builder) effect.Effects[Event] {
	now := c.now()
	var wait time.Duration
	if round, ok := c.roundAt(now); ok {
		next := c.genesis.Add(time.Duration(round+1) * c.roundLength)
		wait = next.Time().Sub(now.Time())
	} else {
		wait = c.genesis.Time().Sub(now.Time())
	}
	return effect.Event(eb.SetTimeout(wait), func(time.Duration) Event {
		return Tick{}
	})
}

// roundAt is the round in progress at t, if genesis has passed.
func (c *Consensus[REv]) roundAt(t types.Timestamp) (uint64, bool) {
	if t < c.genesis {
		return 0, false
	}
	return uint64(t-c.genesis) / uint64(c.roundLength/time.Millisecond), true
}

// Leader of round.
func (c *Consensus[REv]) Leader(round uint64) types.AccountHash {
	return c.validators[round%uint64(len(c.validators))]
}

// IsValidator reports whether our key is in the validator set.
func (c *Consensus[REv]) IsValidator() bool {
	if c.key == nil {
		return false
	}
	for _, v := range c.validators {
		if v == c.ourAccount {
			return true
		}
	}
	return false
}

// NextHeight is the height of the next block to finalize.
func (c *Consensus[REv]) NextHeight() uint64 {
	return c.nextHeight
}
