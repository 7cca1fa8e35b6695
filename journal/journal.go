// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package journal keeps a local history of submitted staking transactions.
package journal

import (
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/zviadm/celovote-app/stake"
)

var logger = log.New("pkg", "journal")

var _ stake.Recorder = (*Journal)(nil)

const (
	entryPrefix   = 'e'
	accountPrefix = 'a'
)

var (
	writeOpt = opt.WriteOptions{Sync: true}
	readOpt  = opt.ReadOptions{}
)

// Entry is a recorded step.
type Entry struct {
	Seq        uint64
	Time       uint64
	Account    common.Address
	Action     string
	Amount     *big.Int
	Group      common.Address
	To         common.Address
	ProposalID uint64
	Tx         common.Hash
}

// Step rebuilds the step the entry was recorded from.
func (e *Entry) Step() stake.Step {
	return stake.Step{
		Action:     stake.Action(e.Action),
		Amount:     e.Amount,
		Group:      e.Group,
		To:         e.To,
		ProposalID: e.ProposalID,
	}
}

// Journal stores entries in leveldb under a sequence number, with an index by
// account.
type Journal struct {
	db  *leveldb.DB
	now func() time.Time

	mu  sync.Mutex
	seq uint64
}

// Open opens or creates the journal in dir.
func Open(dir string) (*Journal, error) {
	stg, err := storage.OpenFile(dir, false)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	return open(stg)
}

// OpenMem creates a journal kept in memory.
func OpenMem() (*Journal, error) {
	return open(storage.NewMemStorage())
}

func open(stg storage.Storage) (*Journal, error) {
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: 16,
		Filter:                 filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	j := &Journal{db: db, now: time.Now}

	it := db.NewIterator(util.BytesPrefix([]byte{entryPrefix}), &readOpt)
	if it.Last() {
		j.seq = binary.BigEndian.Uint64(it.Key()[1:])
	}
	it.Release()
	if err := it.Error(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "scan journal")
	}
	return j, nil
}

func entryKey(seq uint64) []byte {
	k := make([]byte, 9)
	k[0] = entryPrefix
	binary.BigEndian.PutUint64(k[1:], seq)
	return k
}

func accountKey(account common.Address, seq uint64) []byte {
	k := make([]byte, 0, 1+common.AddressLength+8)
	k = append(k, accountPrefix)
	k = append(k, account.Bytes()...)
	return binary.BigEndian.AppendUint64(k, seq)
}

// Record appends step, submitted for account in tx.
func (j *Journal) Record(account common.Address, step stake.Step, tx common.Hash) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := Entry{
		Seq:        j.seq + 1,
		Time:       uint64(j.now().Unix()),
		Account:    account,
		Action:     string(step.Action),
		Amount:     step.Amount,
		Group:      step.Group,
		To:         step.To,
		ProposalID: step.ProposalID,
		Tx:         tx,
	}
	if entry.Amount == nil {
		entry.Amount = new(big.Int)
	}
	data, err := rlp.EncodeToBytes(&entry)
	if err != nil {
		return errors.Wrap(err, "encode entry")
	}

	batch := new(leveldb.Batch)
	batch.Put(entryKey(entry.Seq), data)
	batch.Put(accountKey(account, entry.Seq), nil)
	if err := j.db.Write(batch, &writeOpt); err != nil {
		return errors.Wrap(err, "write entry")
	}
	j.seq = entry.Seq
	logger.Debug("recorded step", "seq", entry.Seq, "account", account, "action", entry.Action)
	return nil
}

func (j *Journal) get(seq uint64) (*Entry, error) {
	data, err := j.db.Get(entryKey(seq), &readOpt)
	if err != nil {
		return nil, errors.Wrapf(err, "get entry %d", seq)
	}
	var entry Entry
	if err := rlp.DecodeBytes(data, &entry); err != nil {
		return nil, errors.Wrapf(err, "decode entry %d", seq)
	}
	return &entry, nil
}

// List returns up to limit entries, newest first. A zero account lists all
// accounts; a non-positive limit lists everything.
func (j *Journal) List(account common.Address, limit int) ([]*Entry, error) {
	prefix := []byte{entryPrefix}
	if account != (common.Address{}) {
		prefix = append([]byte{accountPrefix}, account.Bytes()...)
	}
	it := j.db.NewIterator(util.BytesPrefix(prefix), &readOpt)
	defer it.Release()

	var entries []*Entry
	for ok := it.Last(); ok && (limit <= 0 || len(entries) < limit); ok = it.Prev() {
		key := it.Key()
		seq := binary.BigEndian.Uint64(key[len(key)-8:])
		entry, err := j.get(seq)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, "iterate journal")
	}
	return entries, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
