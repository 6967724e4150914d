package chainspec

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/shivlim/casper-node/src/types"
)

type tomlGenesis struct {
	Name            string    `toml:"name"`
	Timestamp       time.Time `toml:"timestamp"`
	ProtocolVersion string    `toml:"protocol_version"`
	AccountsPath    string    `toml:"accounts_path"`
}

type tomlDeploys struct {
	MaxTTL              string `toml:"max_ttl"`
	BlockMaxDeployCount int    `toml:"block_max_deploy_count"`
}

type tomlHighway struct {
	RoundLength    string `toml:"round_length"`
	ValidatorSlots int    `toml:"validator_slots"`
}

type tomlUpgrade struct {
	ActivationPoint uint64 `toml:"activation_point"`
	ProtocolVersion string `toml:"protocol_version"`
	InstallerPath   string `toml:"installer_path"`
}

type tomlChainspec struct {
	Genesis  tomlGenesis   `toml:"genesis"`
	Deploys  tomlDeploys   `toml:"deploys"`
	Highway  tomlHighway   `toml:"highway"`
	Upgrades []tomlUpgrade `toml:"upgrade"`
}

// Load reads the chainspec at path. The accounts file and upgrade installers
// are resolved relative to the chainspec's directory.
func Load(path string) (*Chainspec, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, newError(LoadChainspec, path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes chainspec TOML. Relative paths inside it are resolved against
// dir.
func Parse(data []byte, dir string) (*Chainspec, error) {
	var raw tomlChainspec
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, newError(DecodingFromToml, "", err)
	}

	c := &Chainspec{}
	var err error

	c.Genesis.Name = raw.Genesis.Name
	c.Genesis.Timestamp = types.FromTime(raw.Genesis.Timestamp)
	if c.Genesis.ProtocolVersion, err = parseVersion(raw.Genesis.ProtocolVersion); err != nil {
		return nil, err
	}

	if raw.Genesis.AccountsPath == "" {
		return nil, newError(LoadChainspecAccounts, "", errors.New("genesis.accounts_path is not set"))
	}
	accountsPath := resolve(dir, raw.Genesis.AccountsPath)
	accounts, err := ioutil.ReadFile(accountsPath)
	if err != nil {
		return nil, newError(LoadChainspecAccounts, accountsPath, err)
	}
	if c.Genesis.Accounts, err = ParseAccounts(accounts); err != nil {
		return nil, newError(LoadChainspecAccounts, accountsPath, err)
	}

	if c.Deploys.MaxTTL, err = parseDuration("deploys.max_ttl", raw.Deploys.MaxTTL); err != nil {
		return nil, err
	}
	c.Deploys.BlockMaxDeployCount = raw.Deploys.BlockMaxDeployCount

	if c.Highway.RoundLength, err = parseDuration("highway.round_length", raw.Highway.RoundLength); err != nil {
		return nil, err
	}
	c.Highway.ValidatorSlots = raw.Highway.ValidatorSlots

	for _, u := range raw.Upgrades {
		point := UpgradePoint{ActivationPoint: u.ActivationPoint}
		if point.ProtocolVersion, err = parseVersion(u.ProtocolVersion); err != nil {
			return nil, err
		}
		if u.InstallerPath != "" {
			installer := resolve(dir, u.InstallerPath)
			if point.InstallerCode, err = ioutil.ReadFile(installer); err != nil {
				return nil, newError(LoadUpgradePoint, installer, err)
			}
		}
		c.Upgrades = append(c.Upgrades, point)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseAccounts decodes accounts CSV: one `key_hash,balance,bonded_amount` row
// per account, no header.
func ParseAccounts(data []byte) ([]GenesisAccount, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 3
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var accounts []GenesisAccount
	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &AccountsLoadError{Kind: DecodingFromCsv, Line: line, Cause: err}
		}

		hash, herr := parseAccountHash(record[0])
		if herr != nil {
			herr.Line = line
			return nil, herr
		}
		balance, merr := types.ParseMotes(strings.TrimSpace(record[1]))
		if merr != nil {
			return nil, &AccountsLoadError{Kind: AccountDecodingMotes, Line: line, Cause: merr}
		}
		bond, merr := types.ParseMotes(strings.TrimSpace(record[2]))
		if merr != nil {
			return nil, &AccountsLoadError{Kind: AccountDecodingMotes, Line: line, Cause: merr}
		}

		accounts = append(accounts, GenesisAccount{
			AccountHash:  hash,
			Balance:      balance,
			BondedAmount: bond,
		})
	}
	return accounts, nil
}

// parseAccountHash decodes hex when every character is a hex digit and falls
// back to standard base64 otherwise.
func parseAccountHash(s string) (types.AccountHash, *AccountsLoadError) {
	var hash types.AccountHash
	s = strings.TrimSpace(s)

	var raw []byte
	if isHex(s) {
		b, err := hex.DecodeString(s)
		if err != nil {
			return hash, &AccountsLoadError{Kind: DecodingFromHex, Cause: err}
		}
		raw = b
	} else {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return hash, &AccountsLoadError{Kind: Crypto, Cause: err}
		}
		raw = b
	}

	if len(raw) != types.AccountHashLength {
		return hash, &AccountsLoadError{Kind: InvalidHashLength, Length: len(raw)}
	}
	copy(hash[:], raw)
	return hash, nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func parseVersion(s string) (semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return semver.Version{}, newError(DecodingFromToml, "", errors.Wrapf(err, "protocol version %q", s))
	}
	return *v, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, newError(DecodingFromToml, "", errors.Wrap(err, field))
	}
	return d, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
