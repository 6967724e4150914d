package chainspec

import (
	"fmt"
	"sort"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/shivlim/casper-node/src/types"
)

// GenesisAccount is one row of the accounts file.
type GenesisAccount struct {
	AccountHash  types.AccountHash
	Balance      types.Motes
	BondedAmount types.Motes
}

// IsValidator reports whether the account has a non-zero bond.
func (a GenesisAccount) IsValidator() bool {
	return !a.BondedAmount.IsZero()
}

// GenesisConfig is the [genesis] section together with the loaded accounts.
type GenesisConfig struct {
	Name            string
	Timestamp       types.Timestamp
	ProtocolVersion semver.Version
	Accounts        []GenesisAccount
}

// DeployConfig bounds what the node accepts and proposes.
type DeployConfig struct {
	MaxTTL              time.Duration
	BlockMaxDeployCount int
}

// HighwayConfig parameterises consensus.
type HighwayConfig struct {
	RoundLength    time.Duration
	ValidatorSlots int
}

// UpgradePoint switches the protocol version at a block height.
type UpgradePoint struct {
	ActivationPoint uint64
	ProtocolVersion semver.Version
	InstallerCode   []byte `codec:",omitempty"`
}

// Chainspec holds everything that must be identical across the nodes of a
// network.
type Chainspec struct {
	Genesis  GenesisConfig
	Deploys  DeployConfig
	Highway  HighwayConfig
	Upgrades []UpgradePoint
}

// Validate checks the content of a decoded chainspec.
func (c *Chainspec) Validate() error {
	if c.Genesis.Name == "" {
		return newError(Invalid, "", fmt.Errorf("genesis name is empty"))
	}
	if len(c.Genesis.Accounts) == 0 {
		return newError(Invalid, "", fmt.Errorf("no genesis accounts"))
	}
	if len(c.Validators()) == 0 {
		return newError(Invalid, "", fmt.Errorf("no bonded genesis validator"))
	}
	if c.Deploys.MaxTTL <= 0 {
		return newError(Invalid, "", fmt.Errorf("deploys.max_ttl must be positive"))
	}
	if c.Deploys.BlockMaxDeployCount <= 0 {
		return newError(Invalid, "", fmt.Errorf("deploys.block_max_deploy_count must be positive"))
	}
	if c.Highway.RoundLength <= 0 {
		return newError(Invalid, "", fmt.Errorf("highway.round_length must be positive"))
	}

	prev := c.Genesis.ProtocolVersion
	var prevHeight uint64
	for i, u := range c.Upgrades {
		if u.ActivationPoint == 0 || (i > 0 && u.ActivationPoint <= prevHeight) {
			return newError(Invalid, "", fmt.Errorf("upgrade %d: activation points must be increasing and non-zero", i))
		}
		if !prev.LessThan(u.ProtocolVersion) {
			return newError(Invalid, "", fmt.Errorf("upgrade %d: protocol version %s does not follow %s", i, &u.ProtocolVersion, &prev))
		}
		prev = u.ProtocolVersion
		prevHeight = u.ActivationPoint
	}
	return nil
}

// Validators returns the bonded genesis accounts sorted by account hash.
func (c *Chainspec) Validators() []GenesisAccount {
	var vs []GenesisAccount
	for _, a := range c.Genesis.Accounts {
		if a.IsValidator() {
			vs = append(vs, a)
		}
	}
	sort.Slice(vs, func(i, j int) bool {
		return vs[i].AccountHash.Hex() < vs[j].AccountHash.Hex()
	})
	if c.Highway.ValidatorSlots > 0 && len(vs) > c.Highway.ValidatorSlots {
		vs = vs[:c.Highway.ValidatorSlots]
	}
	return vs
}

// ProtocolVersionAt returns the protocol version in force at height.
func (c *Chainspec) ProtocolVersionAt(height uint64) semver.Version {
	v := c.Genesis.ProtocolVersion
	for _, u := range c.Upgrades {
		if height < u.ActivationPoint {
			break
		}
		v = u.ProtocolVersion
	}
	return v
}

// UpgradeAt returns the upgrade activated exactly at height, if any.
func (c *Chainspec) UpgradeAt(height uint64) (UpgradePoint, bool) {
	for _, u := range c.Upgrades {
		if u.ActivationPoint == height {
			return u, true
		}
	}
	return UpgradePoint{}, false
}
