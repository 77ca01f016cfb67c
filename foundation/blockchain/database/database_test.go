package database_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ardanlabs/minichain/foundation/blockchain/database"
	"github.com/ardanlabs/minichain/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// genesisHash is the digest of the canonical genesis contents for
// {Alice: 50, Bob: 50}.
const genesisHash = "0x625803f9d989030c2225d0238a3a7b76ee56c5e94f30465cfba1b99379aef7e5"

// =============================================================================

func TestGenesis(t *testing.T) {
	t.Log("Given the need to start a chain from an initial set of balances.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling Alice and Bob with 50 each.", testID)
		{
			db := newDatabase(t, testID)

			genesis := db.Genesis()
			if genesis.Number() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould have block number 0, got %d.", failed, testID, genesis.Number())
			}
			t.Logf("\t%s\tTest %d:\tShould have block number 0.", success, testID)

			if _, ok := genesis.Contents.Parent(); ok || genesis.ParentHash() != "" {
				t.Fatalf("\t%s\tTest %d:\tShould have no parent hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have no parent hash.", success, testID)

			if genesis.Contents.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould have a txn count of 1, got %d.", failed, testID, genesis.Contents.Count())
			}
			t.Logf("\t%s\tTest %d:\tShould have a txn count of 1.", success, testID)

			snap, ok := genesis.Snapshot()
			if !ok || snap["Alice"] != 50 || snap["Bob"] != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould carry the initial balances: %v", failed, testID, snap)
			}
			t.Logf("\t%s\tTest %d:\tShould carry the initial balances.", success, testID)

			if genesis.Hash != genesisHash {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, genesis.Hash)
				t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, genesisHash)
				t.Fatalf("\t%s\tTest %d:\tShould have the expected hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould have the expected hash.", success, testID)

			bd, err := database.NewBlockData(genesis)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to encode the block: %v", failed, testID, err)
			}
			if !bytes.Contains(bd.Contents, []byte(`"parentHash":null`)) {
				t.Fatalf("\t%s\tTest %d:\tShould encode a null parent hash: %s", failed, testID, bd.Contents)
			}
			t.Logf("\t%s\tTest %d:\tShould encode a null parent hash.", success, testID)
		}
	}
}

func TestChainIntegrity(t *testing.T) {
	type table struct {
		name    string
		batches [][]database.Tx
	}

	tt := []table{
		{
			name: "basic",
			batches: [][]database.Tx{
				{{"Alice": -3, "Bob": 3}, {"Alice": 1, "Bob": -1}},
				{{"Alice": -2, "Bob": 2}},
				{},
				{{"Alice": 5, "Bob": -5}, {"Alice": -1, "Bob": 1}, {"Carol": 1, "Bob": -1}},
			},
		},
	}

	t.Log("Given the need to build and verify a chain of blocks.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %d batches.", testID, len(tst.batches))
			{
				f := func(t *testing.T) {
					db := newDatabase(t, testID)

					for _, trans := range tst.batches {
						parent := db.LatestBlock()
						block, err := database.NewBlock(trans, parent)
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to build a block: %v", failed, testID, err)
						}

						if block.Number() != parent.Number()+1 || block.ParentHash() != parent.Hash {
							t.Fatalf("\t%s\tTest %d:\tShould link the block to its parent.", failed, testID)
						}

						if block.Contents.Count() != len(trans) {
							t.Fatalf("\t%s\tTest %d:\tShould count the transactions.", failed, testID)
						}

						if err := db.Append(block); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to append a block: %v", failed, testID, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to build and append every block.", success, testID)

					if db.Length() != uint64(len(tst.batches)+1) {
						t.Fatalf("\t%s\tTest %d:\tShould have every block plus genesis, got %d.", failed, testID, db.Length())
					}
					t.Logf("\t%s\tTest %d:\tShould have every block plus genesis.", success, testID)

					if err := db.VerifyChain(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to verify the chain: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to verify the chain.", success, testID)

					blocks, err := db.Blocks()
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to read the blocks: %v", failed, testID, err)
					}

					for _, block := range blocks {
						for i := 0; i < 3; i++ {
							if err := db.Verify(block); err != nil {
								t.Fatalf("\t%s\tTest %d:\tShould verify block %d every time: %v", failed, testID, block.Number(), err)
							}
						}

						byHash, err := db.GetBlockByHash(block.Hash)
						if err != nil || byHash.Number() != block.Number() {
							t.Fatalf("\t%s\tTest %d:\tShould find block %d by hash: %v", failed, testID, block.Number(), err)
						}

						byNum, err := db.GetBlock(block.Number())
						if err != nil || byNum.Hash != block.Hash {
							t.Fatalf("\t%s\tTest %d:\tShould find block %d by number: %v", failed, testID, block.Number(), err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould verify and find every block.", success, testID)

					if _, err := db.GetBlock(db.Length()); !errors.Is(err, database.ErrNotFound) {
						t.Fatalf("\t%s\tTest %d:\tShould not find a block past the tail: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould not find a block past the tail.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestTamper(t *testing.T) {
	type table struct {
		name   string
		number uint64
		find   string
		change func(b byte) byte
	}

	tt := []table{
		{name: "txnCount", number: 2, find: `"txnCount":`, change: func(b byte) byte { return b + 1 }},
		{name: "delta", number: 1, find: `"Bob":`, change: func(b byte) byte { return b + 1 }},
		{name: "genesis", number: 0, find: `"Alice":`, change: func(b byte) byte { return b - 1 }},
	}

	t.Log("Given the need to detect a block whose contents were changed.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen flipping a byte in %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					mem, err := memory.New()
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct storage: %v", failed, testID, err)
					}

					db := buildChain(t, testID, mem)

					bd, err := mem.GetBlock(tst.number)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to read block %d: %v", failed, testID, tst.number, err)
					}

					idx := bytes.Index(bd.Contents, []byte(tst.find))
					if idx == -1 {
						t.Fatalf("\t%s\tTest %d:\tShould find %s in %s.", failed, testID, tst.find, bd.Contents)
					}
					pos := idx + len(tst.find)

					tampered := database.BlockData{
						Hash:     bd.Hash,
						Contents: append([]byte{}, bd.Contents...),
					}
					tampered.Contents[pos] = tst.change(tampered.Contents[pos])

					block, err := database.ToBlock(tampered)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to decode the tampered block: %v", failed, testID, err)
					}

					err = db.Verify(block)
					var ie *database.IntegrityError
					if !errors.As(err, &ie) {
						t.Fatalf("\t%s\tTest %d:\tShould get an integrity error: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get an integrity error.", success, testID)

					if ie.Number != tst.number || !errors.Is(err, database.ErrIntegrity) {
						t.Fatalf("\t%s\tTest %d:\tShould name block %d, got %d.", failed, testID, tst.number, ie.Number)
					}
					t.Logf("\t%s\tTest %d:\tShould name the tampered block.", success, testID)

					// Rebuild storage with the tampered block in place.
					forged, _ := memory.New()
					for i := uint64(0); i < db.Length(); i++ {
						data, _ := mem.GetBlock(i)
						if i == tst.number {
							data = tampered
						}
						forged.Write(data)
					}

					if _, err := database.New(database.Snapshot{"Alice": 50, "Bob": 50}, forged, nil); !errors.Is(err, database.ErrIntegrity) {
						t.Fatalf("\t%s\tTest %d:\tShould refuse to load a tampered chain: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould refuse to load a tampered chain.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestBrokenLinks(t *testing.T) {
	t.Log("Given the need to detect blocks that are not linked to their parent.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen appending a block built on the wrong parent.", testID)
		{
			db := newDatabase(t, testID)

			first, err := database.NewBlock([]database.Tx{{"Alice": -1, "Bob": 1}}, db.LatestBlock())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build a block: %v", failed, testID, err)
			}
			if err := db.Append(first); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to append a block: %v", failed, testID, err)
			}

			// Built on genesis again instead of the latest block.
			stale, err := database.NewBlock([]database.Tx{{"Alice": -1, "Bob": 1}}, db.Genesis())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build a block: %v", failed, testID, err)
			}
			if err := db.Append(stale); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append without checking linkage: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould append without checking linkage.", success, testID)

			if err := db.Verify(stale); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould still have a hash matching its contents: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould still have a hash matching its contents.", success, testID)

			if err := db.VerifyChain(); !errors.Is(err, database.ErrBlockNumber) {
				t.Fatalf("\t%s\tTest %d:\tShould fail chain verification: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail chain verification.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen a block names a parent hash that doesn't exist.", testID)
		{
			db := newDatabase(t, testID)

			parent := database.Block{Contents: database.GenesisContents{}, Hash: "0xdeadbeef"}
			forged, err := database.NewBlock(nil, parent)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build a block: %v", failed, testID, err)
			}

			if err := db.Append(forged); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to append a block: %v", failed, testID, err)
			}

			if err := db.VerifyChain(); !errors.Is(err, database.ErrParentHash) {
				t.Fatalf("\t%s\tTest %d:\tShould fail on the parent hash: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail on the parent hash.", success, testID)
		}
	}
}

func TestBlockOwnsTransactions(t *testing.T) {
	t.Log("Given the need for a hashed block to never change.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the caller changes a transaction after building.", testID)
		{
			db := newDatabase(t, testID)

			tx := database.Tx{"Alice": -4, "Bob": 4}
			block, err := database.NewBlock([]database.Tx{tx}, db.LatestBlock())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build a block: %v", failed, testID, err)
			}

			tx["Alice"] = -40
			tx["Bob"] = 40

			if err := block.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould still verify: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould still verify.", success, testID)

			trans := block.Transactions()
			trans[0]["Alice"] = 100
			if err := block.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould not expose its own transactions: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould not expose its own transactions.", success, testID)
		}
	}
}

func TestBlockDataRoundTrip(t *testing.T) {
	t.Log("Given the need to export and import blocks as JSON.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen encoding a chain and decoding it again.", testID)
		{
			mem, _ := memory.New()
			db := buildChain(t, testID, mem)

			blocks, err := db.Blocks()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the blocks: %v", failed, testID, err)
			}

			for _, block := range blocks {
				bd, err := database.NewBlockData(block)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to encode block %d: %v", failed, testID, block.Number(), err)
				}

				data, err := json.Marshal(bd)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to marshal block %d: %v", failed, testID, block.Number(), err)
				}

				var decoded database.BlockData
				if err := json.Unmarshal(data, &decoded); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to unmarshal block %d: %v", failed, testID, block.Number(), err)
				}

				got, err := database.ToBlock(decoded)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to convert block %d: %v", failed, testID, block.Number(), err)
				}

				if got.IsGenesis() != block.IsGenesis() {
					t.Fatalf("\t%s\tTest %d:\tShould keep the contents kind of block %d.", failed, testID, block.Number())
				}

				if err := got.Verify(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould verify block %d after decoding: %v", failed, testID, block.Number(), err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould verify every block after decoding.", success, testID)
		}
	}
}

func TestGenesisMismatch(t *testing.T) {
	t.Log("Given the need to reopen storage that already holds a chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the configured genesis differs from the stored one.", testID)
		{
			mem, err := memory.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct storage: %v", failed, testID, err)
			}
			buildChain(t, testID, mem)

			if _, err := database.New(database.Snapshot{"Alice": 50, "Bob": 50}, mem, nil); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould reopen with the same genesis: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reopen with the same genesis.", success, testID)

			for _, snap := range []database.Snapshot{
				{"Alice": 50, "Bob": 49},
				{"Alice": 50},
				{"Alice": 50, "Bob": 50, "Carol": 0},
			} {
				if _, err := database.New(snap, mem, nil); !errors.Is(err, database.ErrGenesisMismatch) {
					t.Fatalf("\t%s\tTest %d:\tShould refuse %v: %v", failed, testID, snap, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a different genesis.", success, testID)
		}
	}
}

// =============================================================================

func newDatabase(t *testing.T, testID int) *database.Database {
	mem, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to construct storage: %v", failed, testID, err)
	}

	db, err := database.New(database.Snapshot{"Alice": 50, "Bob": 50}, mem, nil)
	if err != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to construct a database: %v", failed, testID, err)
	}

	return db
}

func buildChain(t *testing.T, testID int, mem *memory.Memory) *database.Database {
	db, err := database.New(database.Snapshot{"Alice": 50, "Bob": 50}, mem, nil)
	if err != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to construct a database: %v", failed, testID, err)
	}

	batches := [][]database.Tx{
		{{"Alice": -3, "Bob": 3}},
		{{"Alice": 2, "Bob": -2}, {"Alice": -1, "Bob": 1}},
		{{"Alice": -5, "Bob": 5}},
	}

	for _, trans := range batches {
		block, err := database.NewBlock(trans, db.LatestBlock())
		if err != nil {
			t.Fatalf("\t%s\tTest %d:\tShould be able to build a block: %v", failed, testID, err)
		}
		if err := db.Append(block); err != nil {
			t.Fatalf("\t%s\tTest %d:\tShould be able to append a block: %v", failed, testID, err)
		}
	}

	return db
}
