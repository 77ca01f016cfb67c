package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/minichain/foundation/blockchain/hasher"
)

// Set of errors for chain validation.
var (
	ErrIntegrity    = errors.New("block hash does not match contents")
	ErrParentHash   = errors.New("parent hash doesn't match parent block")
	ErrBlockNumber  = errors.New("block number is not the next number")
	ErrNotGenesis   = errors.New("first block is not a genesis block")
	ErrEmptyContent = errors.New("block has no contents")

	ErrGenesisMismatch = errors.New("stored genesis does not match the configured genesis")
)

// IntegrityError is returned when a block's stored hash doesn't match the hash
// recomputed from its contents. A chain holding such a block can't be trusted.
type IntegrityError struct {
	Number uint64
	Got    string
	Exp    string
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("hash does not match contents of block %d, got %s, exp %s", ie.Number, ie.Got, ie.Exp)
}

// Is allows errors.Is to match against ErrIntegrity.
func (ie *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// =============================================================================

// Contents represents what is hashed for a block. There are two kinds:
// GenesisContents and RegularContents.
type Contents interface {
	Number() uint64
	Parent() (hash string, ok bool)
	Count() int
	contents()
}

// GenesisContents carries the initial account balances. It has no parent.
type GenesisContents struct {
	BlockNumber uint64
	TxnCount    int
	Txns        []Snapshot
}

// Number returns the block number.
func (gc GenesisContents) Number() uint64 { return gc.BlockNumber }

// Parent always reports there is no parent.
func (gc GenesisContents) Parent() (string, bool) { return "", false }

// Count returns the declared number of payload entries.
func (gc GenesisContents) Count() int { return gc.TxnCount }

func (GenesisContents) contents() {}

// MarshalJSON implements the json.Marshaler interface so the genesis contents
// encode with a null parent hash.
func (gc GenesisContents) MarshalJSON() ([]byte, error) {
	v := struct {
		BlockNumber uint64     `json:"blockNumber"`
		ParentHash  *string    `json:"parentHash"`
		TxnCount    int        `json:"txnCount"`
		Txns        []Snapshot `json:"txns"`
	}{
		BlockNumber: gc.BlockNumber,
		TxnCount:    gc.TxnCount,
		Txns:        gc.Txns,
	}

	return json.Marshal(v)
}

// RegularContents carries a batch of transactions bound to a parent block.
type RegularContents struct {
	BlockNumber uint64 `json:"blockNumber"`
	ParentHash  string `json:"parentHash"`
	TxnCount    int    `json:"txnCount"`
	Txns        []Tx   `json:"txns"`
}

// Number returns the block number.
func (rc RegularContents) Number() uint64 { return rc.BlockNumber }

// Parent returns the hash of the parent block.
func (rc RegularContents) Parent() (string, bool) { return rc.ParentHash, true }

// Count returns the declared number of transactions.
func (rc RegularContents) Count() int { return rc.TxnCount }

func (RegularContents) contents() {}

// =============================================================================

// Block represents a group of transactions batched together and the hash
// that binds them to their parent.
type Block struct {
	Contents Contents
	Hash     string
}

// NewGenesisBlock constructs the first block of a chain from the initial
// account balances.
func NewGenesisBlock(snapshot Snapshot) (Block, error) {
	contents := GenesisContents{
		BlockNumber: 0,
		TxnCount:    1,
		Txns:        []Snapshot{snapshot.Clone()},
	}

	hash, err := hasher.Hash(contents)
	if err != nil {
		return Block{}, fmt.Errorf("hashing genesis block: %w", err)
	}

	return Block{Contents: contents, Hash: hash}, nil
}

// NewBlock assembles the next block on top of the parent block. The
// transactions are trusted to have been validated against the state they
// were applied to. An empty batch is allowed.
func NewBlock(trans []Tx, parentBlock Block) (Block, error) {
	if parentBlock.Contents == nil {
		return Block{}, ErrEmptyContent
	}

	// The block owns its own copy of the transactions so a caller can't
	// change what was hashed.
	txns := make([]Tx, len(trans))
	for i, tx := range trans {
		txns[i] = tx.Clone()
	}

	contents := RegularContents{
		BlockNumber: parentBlock.Number() + 1,
		ParentHash:  parentBlock.Hash,
		TxnCount:    len(txns),
		Txns:        txns,
	}

	hash, err := hasher.Hash(contents)
	if err != nil {
		return Block{}, fmt.Errorf("hashing block %d: %w", contents.BlockNumber, err)
	}

	return Block{Contents: contents, Hash: hash}, nil
}

// Number returns the block number.
func (b Block) Number() uint64 {
	if b.Contents == nil {
		return 0
	}
	return b.Contents.Number()
}

// ParentHash returns the parent hash or an empty string for genesis.
func (b Block) ParentHash() string {
	if b.Contents == nil {
		return ""
	}
	hash, _ := b.Contents.Parent()
	return hash
}

// IsGenesis reports whether the block carries genesis contents.
func (b Block) IsGenesis() bool {
	_, ok := b.Contents.(GenesisContents)
	return ok
}

// Transactions returns a copy of the block's transactions. The genesis block
// has none.
func (b Block) Transactions() []Tx {
	rc, ok := b.Contents.(RegularContents)
	if !ok {
		return nil
	}

	trans := make([]Tx, len(rc.Txns))
	for i, tx := range rc.Txns {
		trans[i] = tx.Clone()
	}
	return trans
}

// Snapshot returns a copy of the initial balances if this is a genesis block.
func (b Block) Snapshot() (Snapshot, bool) {
	gc, ok := b.Contents.(GenesisContents)
	if !ok || len(gc.Txns) == 0 {
		return nil, false
	}
	return gc.Txns[0].Clone(), true
}

// Verify recomputes the hash of the block contents and compares it to the
// hash stored with the block.
func (b Block) Verify() error {
	if b.Contents == nil {
		return ErrEmptyContent
	}

	hash, err := hasher.Hash(b.Contents)
	if err != nil {
		return fmt.Errorf("hashing block %d: %w", b.Number(), err)
	}

	if hash != b.Hash {
		return &IntegrityError{Number: b.Number(), Got: b.Hash, Exp: hash}
	}

	return nil
}

// ValidateBlock takes a block and validates it to follow the previous block
// in the chain.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash matches contents", b.Number())

	if err := b.Verify(); err != nil {
		return err
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Number())

	nextNumber := previousBlock.Number() + 1
	if b.IsGenesis() || b.Number() != nextNumber {
		return fmt.Errorf("%w, got %d, exp %d", ErrBlockNumber, b.Number(), nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Number())

	if b.ParentHash() != previousBlock.Hash {
		return fmt.Errorf("%w, got %s, exp %s", ErrParentHash, b.ParentHash(), previousBlock.Hash)
	}

	return nil
}

// =============================================================================

// BlockData represents what is written to storage and sent over the wire.
// The contents are kept as the exact bytes that were encoded.
type BlockData struct {
	Hash     string          `json:"hash"`
	Contents json.RawMessage `json:"contents"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) (BlockData, error) {
	if block.Contents == nil {
		return BlockData{}, ErrEmptyContent
	}

	data, err := json.Marshal(block.Contents)
	if err != nil {
		return BlockData{}, &hasher.SerializationError{Err: err}
	}

	bd := BlockData{
		Hash:     block.Hash,
		Contents: data,
	}

	return bd, nil
}

// ToBlock converts a BlockData into a Block, choosing the contents kind from
// the parent hash. A null parent hash means genesis contents.
func ToBlock(blockData BlockData) (Block, error) {
	var probe struct {
		BlockNumber uint64          `json:"blockNumber"`
		ParentHash  *string         `json:"parentHash"`
		TxnCount    int             `json:"txnCount"`
		Txns        json.RawMessage `json:"txns"`
	}

	if err := decodeStrict(blockData.Contents, &probe); err != nil {
		return Block{}, fmt.Errorf("decoding block contents: %w", err)
	}

	if probe.ParentHash == nil {
		var txns []Snapshot
		if err := decodeStrict(probe.Txns, &txns); err != nil {
			return Block{}, fmt.Errorf("decoding genesis payload: %w", err)
		}

		gc := GenesisContents{
			BlockNumber: probe.BlockNumber,
			TxnCount:    probe.TxnCount,
			Txns:        txns,
		}

		return Block{Contents: gc, Hash: blockData.Hash}, nil
	}

	var txns []Tx
	if err := decodeStrict(probe.Txns, &txns); err != nil {
		return Block{}, fmt.Errorf("decoding block %d transactions: %w", probe.BlockNumber, err)
	}

	rc := RegularContents{
		BlockNumber: probe.BlockNumber,
		ParentHash:  *probe.ParentHash,
		TxnCount:    probe.TxnCount,
		Txns:        txns,
	}

	return Block{Contents: rc, Hash: blockData.Hash}, nil
}

// decodeStrict decodes the data and fails on unknown fields.
func decodeStrict(data []byte, v any) error {
	if len(data) == 0 {
		return errors.New("no data")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}
