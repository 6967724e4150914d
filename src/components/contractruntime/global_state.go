package contractruntime

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger"
	"github.com/shivlim/casper-node/src/types"
)

const statePrefix = "state"

type account struct {
	Hash    types.AccountHash
	Balance types.Motes
}

// snapshot is the full set of accounts under one state root, sorted by hash.
type snapshot struct {
	Accounts []account
}

func (s *snapshot) sort() {
	sort.Slice(s.Accounts, func(i, j int) bool {
		return s.Accounts[i].Hash.Hex() < s.Accounts[j].Hash.Hex()
	})
}

func (s *snapshot) find(hash types.AccountHash) int {
	i := sort.Search(len(s.Accounts), func(i int) bool {
		return s.Accounts[i].Hash.Hex() >= hash.Hex()
	})
	if i < len(s.Accounts) && s.Accounts[i].Hash == hash {
		return i
	}
	return -1
}

func (s *snapshot) balance(hash types.AccountHash) (types.Motes, bool) {
	if i := s.find(hash); i >= 0 {
		return s.Accounts[i].Balance, true
	}
	return types.Motes{}, false
}

func (s *snapshot) set(hash types.AccountHash, balance types.Motes) {
	if i := s.find(hash); i >= 0 {
		s.Accounts[i].Balance = balance
		return
	}
	s.Accounts = append(s.Accounts, account{Hash: hash, Balance: balance})
	s.sort()
}

func (s *snapshot) clone() *snapshot {
	accounts := make([]account, len(s.Accounts))
	copy(accounts, s.Accounts)
	return &snapshot{Accounts: accounts}
}

// root commits to every (hash, balance) pair in order.
func (s *snapshot) root() types.Digest {
	data := make([][]byte, 0, 2*len(s.Accounts))
	for _, a := range s.Accounts {
		a := a
		balance := a.Balance.Bytes()
		entry := make([]byte, 0, types.AccountHashLength+4+len(balance))
		entry = append(entry, a.Hash[:]...)
		entry = binary.BigEndian.AppendUint32(entry, uint32(len(balance)))
		entry = append(entry, balance...)
		data = append(data, entry)
	}
	return types.Hash(data...)
}

func stateKey(root types.Digest) []byte {
	return []byte(fmt.Sprintf("%s/%s", statePrefix, root.Hex()))
}

func loadSnapshot(txn *badger.Txn, root types.Digest) (*snapshot, bool, error) {
	item, err := txn.Get(stateKey(root))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	s := new(snapshot)
	if err := types.Unmarshal(val, s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func storeSnapshot(txn *badger.Txn, s *snapshot) (types.Digest, error) {
	root := s.root()
	val, err := types.Marshal(s)
	if err != nil {
		return root, err
	}
	return root, txn.Set(stateKey(root), val)
}
