// Package deployacceptor checks deploys received from clients and peers
// before they enter the node.
package deployacceptor

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/rng"
	"github.com/shivlim/casper-node/src/types"
	"github.com/shivlim/casper-node/src/types/chainspec"
	"github.com/sirupsen/logrus"
)

// Config ...
type Config struct {
	// TimestampLeeway is how far in the future a deploy's timestamp may be.
	TimestampLeeway time.Duration `mapstructure:"timestamp_leeway"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{TimestampLeeway: 2 * time.Second}
}

// Embedder is what the hosting reactor must provide.
type Embedder[REv any] interface {
	effect.StorageRequestEmbedder[REv]
	effect.DeployAcceptorAnnouncementEmbedder[REv]
}

// DeployAcceptor checks and stores deploys from clients and peers.
type DeployAcceptor[REv any] struct {
	conf      Config
	chainName string
	maxTTL    time.Duration
	emb       Embedder[REv]
	now       func() types.Timestamp
	logger    *logrus.Entry
}

// New returns an acceptor for deploys of chain c.
func New[REv any](conf Config, c *chainspec.Chainspec, emb Embedder[REv], logger *logrus.Entry) *DeployAcceptor[REv] {
	return &DeployAcceptor[REv]{
		conf:      conf,
		chainName: c.Genesis.Name,
		maxTTL:    c.Deploys.MaxTTL,
		emb:       emb,
		now:       types.Now,
		logger:    logger.WithField("component", "deploy_acceptor"),
	}
}

// HandleEvent checks a deploy, stores it and announces the outcome.
func (a *DeployAcceptor[REv]) HandleEvent(eb effect.Builder, _ rng.NodeRng, ev Event) effect.Effects[Event] {
	switch ev := ev.(type) {
	case Accept:
		if err := a.Check(ev.Deploy); err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"deploy": ev.Deploy.Hash,
				"source": ev.Source,
			}).Info("invalid deploy")
			respond(ev.Responder, err)
			return effect.Ignore[Event](effect.AnnounceInvalidDeploy[REv](eb, a.emb, ev.Deploy, ev.Source, err))
		}
		accept := ev
		return effect.Event(effect.PutDeployToStorage[REv](eb, a.emb, ev.Deploy), func(isNew bool) Event {
			return Stored{Deploy: accept.Deploy, Source: accept.Source, Responder: accept.Responder, IsNew: isNew}
		})
	case Stored:
		respond(ev.Responder, nil)
		if !ev.IsNew {
			return nil
		}
		a.logger.WithFields(logrus.Fields{
			"deploy": ev.Deploy.Hash,
			"source": ev.Source,
		}).Debug("deploy accepted")
		return effect.Ignore[Event](effect.AnnounceDeployAccepted[REv](eb, a.emb, ev.Deploy, ev.Source))
	default:
		panic(fmt.Sprintf("unhandled deploy acceptor event %T", ev))
	}
}

// Check validates d without touching storage.
func (a *DeployAcceptor[REv]) Check(d *types.Deploy) error {
	if d.Header.ChainName != a.chainName {
		return errors.Errorf("deploy is for chain %q, not %q", d.Header.ChainName, a.chainName)
	}
	if d.Header.TTL <= 0 || d.Header.TTL > a.maxTTL {
		return errors.Errorf("ttl %s outside (0, %s]", d.Header.TTL, a.maxTTL)
	}
	now := a.now()
	if d.Header.Timestamp > now.Add(a.conf.TimestampLeeway) {
		return errors.Errorf("timestamp %s is in the future", d.Header.Timestamp)
	}
	if d.Expired(now) {
		return errors.New("deploy expired")
	}
	if d.Session.Amount.IsZero() {
		return errors.New("transfer of zero motes")
	}
	return errors.Wrap(d.Verify(), "invalid deploy")
}

func respond(r effect.Responder[error], err error) {
	if !r.IsZero() {
		r.Respond(err)
	}
}
