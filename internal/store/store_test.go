package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

const (
	testContractAddr = "0x1111111111111111111111111111111111111111"
	testOwnerAddr    = "0x2222222222222222222222222222222222222222"
	testSecondOwner  = "0x3333333333333333333333333333333333333333"
	testOperatorAddr = "0x4444444444444444444444444444444444444444"
)

// buildTestToken creates a minimal live ERC-721 token row
func buildTestToken(contract, tokenID string, block, logIndex uint64) *schema.Token {
	owner := testOwnerAddr
	return &schema.Token{
		ContractAddress:    contract,
		TokenID:            tokenID,
		Standard:           schema.StandardERC721,
		Owner:              &owner,
		Minter:             testOwnerAddr,
		MintBlock:          block,
		LastUpdateBlock:    block,
		LastUpdateLogIndex: logIndex,
	}
}

func mustCreateContract(t *testing.T, st Store, address string) {
	t.Helper()
	require.NoError(t, st.CreateContract(context.Background(), &schema.Contract{
		Address:      address,
		CreatedBlock: 1,
	}))
}

// RunStoreTests exercises a Store implementation. initDB must hand back a
// store with a clean database state for every test.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("SaveTokenAndGetToken", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		uri := "ipfs://QmX/1.json"
		token := buildTestToken(testContractAddr, "1", 100, 2)
		token.TokenURI = &uri
		require.NoError(t, st.SaveToken(ctx, token))

		stored, err := st.GetToken(ctx, testContractAddr, "1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, schema.StandardERC721, stored.Standard)
		require.NotNil(t, stored.Owner)
		assert.Equal(t, testOwnerAddr, *stored.Owner)
		require.NotNil(t, stored.TokenURI)
		assert.Equal(t, uri, *stored.TokenURI)
		assert.Equal(t, uint64(100), stored.LastUpdateBlock)
		assert.Equal(t, uint64(2), stored.LastUpdateLogIndex)
	})

	t.Run("GetTokenMissingReturnsNil", func(t *testing.T) {
		st := initDB(t)

		stored, err := st.GetToken(ctx, testContractAddr, "404")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("SaveTokenRejectsStaleProvenance", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		require.NoError(t, st.SaveToken(ctx, buildTestToken(testContractAddr, "1", 100, 5)))

		// Older block
		stale := buildTestToken(testContractAddr, "1", 99, 9)
		newOwner := testSecondOwner
		stale.Owner = &newOwner
		require.ErrorIs(t, st.SaveToken(ctx, stale), domain.ErrStaleEvent)

		// Same block, same log index
		replay := buildTestToken(testContractAddr, "1", 100, 5)
		replay.Owner = &newOwner
		require.ErrorIs(t, st.SaveToken(ctx, replay), domain.ErrStaleEvent)

		stored, err := st.GetToken(ctx, testContractAddr, "1")
		require.NoError(t, err)
		assert.Equal(t, testOwnerAddr, *stored.Owner)
	})

	t.Run("SaveTokenAcceptsNewerProvenance", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		require.NoError(t, st.SaveToken(ctx, buildTestToken(testContractAddr, "1", 100, 5)))

		// Same block, higher log index
		newer := buildTestToken(testContractAddr, "1", 100, 6)
		newOwner := testSecondOwner
		newer.Owner = &newOwner
		require.NoError(t, st.SaveToken(ctx, newer))

		stored, err := st.GetToken(ctx, testContractAddr, "1")
		require.NoError(t, err)
		assert.Equal(t, testSecondOwner, *stored.Owner)
		assert.Equal(t, uint64(6), stored.LastUpdateLogIndex)
	})

	t.Run("SaveTokenPreservesMintFacts", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		mint := buildTestToken(testContractAddr, "1", 100, 0)
		mint.Minter = testOwnerAddr
		require.NoError(t, st.SaveToken(ctx, mint))

		update := buildTestToken(testContractAddr, "1", 200, 0)
		update.Minter = testSecondOwner
		update.MintBlock = 200
		require.NoError(t, st.SaveToken(ctx, update))

		stored, err := st.GetToken(ctx, testContractAddr, "1")
		require.NoError(t, err)
		assert.Equal(t, testOwnerAddr, stored.Minter)
		assert.Equal(t, uint64(100), stored.MintBlock)
	})

	t.Run("CreateContractIsInsertIfAbsent", func(t *testing.T) {
		st := initDB(t)

		require.NoError(t, st.CreateContract(ctx, &schema.Contract{
			Address:      testContractAddr,
			CreatedBlock: 50,
		}))

		// A later creation event never rewrites the first-seen provenance
		require.NoError(t, st.CreateContract(ctx, &schema.Contract{
			Address:      testContractAddr,
			CreatedBlock: 99,
		}))

		stored, err := st.GetContract(ctx, testContractAddr)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, uint64(50), stored.CreatedBlock)
	})

	t.Run("SaveTokenWithBalances", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		supply := "10"
		token := buildTestToken(testContractAddr, "7", 100, 0)
		token.Standard = schema.StandardERC1155
		token.Owner = nil
		token.TotalSupply = &supply

		balances := []schema.Balance{
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testOwnerAddr, Quantity: "6"},
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testSecondOwner, Quantity: "4"},
		}
		require.NoError(t, st.SaveTokenWithBalances(ctx, token, balances))

		stored, err := st.GetBalances(ctx, testContractAddr, "7")
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "6", stored[0].Quantity)
		assert.Equal(t, "4", stored[1].Quantity)
	})

	t.Run("SaveTokenWithBalancesDeletesZeroQuantity", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		token := buildTestToken(testContractAddr, "7", 100, 0)
		token.Standard = schema.StandardERC1155
		token.Owner = nil
		require.NoError(t, st.SaveTokenWithBalances(ctx, token, []schema.Balance{
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testOwnerAddr, Quantity: "5"},
		}))

		// Full transfer to another owner empties the sender's row
		next := buildTestToken(testContractAddr, "7", 101, 0)
		next.Standard = schema.StandardERC1155
		next.Owner = nil
		require.NoError(t, st.SaveTokenWithBalances(ctx, next, []schema.Balance{
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testOwnerAddr, Quantity: "0"},
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testSecondOwner, Quantity: "5"},
		}))

		gone, err := st.GetBalance(ctx, testContractAddr, "7", testOwnerAddr)
		require.NoError(t, err)
		assert.Nil(t, gone)

		held, err := st.GetBalance(ctx, testContractAddr, "7", testSecondOwner)
		require.NoError(t, err)
		require.NotNil(t, held)
		assert.Equal(t, "5", held.Quantity)
	})

	t.Run("SaveTokenWithBalancesRollsBackOnStaleToken", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		token := buildTestToken(testContractAddr, "7", 100, 0)
		token.Standard = schema.StandardERC1155
		token.Owner = nil
		require.NoError(t, st.SaveTokenWithBalances(ctx, token, []schema.Balance{
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testOwnerAddr, Quantity: "5"},
		}))

		stale := buildTestToken(testContractAddr, "7", 99, 0)
		stale.Standard = schema.StandardERC1155
		stale.Owner = nil
		err := st.SaveTokenWithBalances(ctx, stale, []schema.Balance{
			{ContractAddress: testContractAddr, TokenID: "7", Owner: testOwnerAddr, Quantity: "999"},
		})
		require.ErrorIs(t, err, domain.ErrStaleEvent)

		held, err := st.GetBalance(ctx, testContractAddr, "7", testOwnerAddr)
		require.NoError(t, err)
		require.NotNil(t, held)
		assert.Equal(t, "5", held.Quantity)
	})

	t.Run("SaveApprovalForAll", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		require.NoError(t, st.SaveApprovalForAll(ctx, &schema.ApprovalForAll{
			ContractAddress:    testContractAddr,
			Owner:              testOwnerAddr,
			Operator:           testOperatorAddr,
			Approved:           true,
			LastUpdateBlock:    100,
			LastUpdateLogIndex: 1,
		}))

		// Stale revocation is rejected
		err := st.SaveApprovalForAll(ctx, &schema.ApprovalForAll{
			ContractAddress:    testContractAddr,
			Owner:              testOwnerAddr,
			Operator:           testOperatorAddr,
			Approved:           false,
			LastUpdateBlock:    99,
			LastUpdateLogIndex: 9,
		})
		require.ErrorIs(t, err, domain.ErrStaleEvent)

		// Newer revocation wins
		require.NoError(t, st.SaveApprovalForAll(ctx, &schema.ApprovalForAll{
			ContractAddress:    testContractAddr,
			Owner:              testOwnerAddr,
			Operator:           testOperatorAddr,
			Approved:           false,
			LastUpdateBlock:    101,
			LastUpdateLogIndex: 0,
		}))

		stored, err := st.GetApprovalForAll(ctx, testContractAddr, testOwnerAddr, testOperatorAddr)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.False(t, stored.Approved)
		assert.Equal(t, uint64(101), stored.LastUpdateBlock)
	})

	t.Run("SaveBlockAndTransactionIgnoreDuplicates", func(t *testing.T) {
		st := initDB(t)

		block := &schema.Block{Number: 100}
		require.NoError(t, st.SaveBlock(ctx, block))
		require.NoError(t, st.SaveBlock(ctx, block))

		to := testSecondOwner
		tx := &schema.Transaction{
			BlockNumber: 100,
			Index:       3,
			Hash:        "0xabc",
			From:        testOwnerAddr,
			To:          &to,
		}
		require.NoError(t, st.SaveTransaction(ctx, tx))
		require.NoError(t, st.SaveTransaction(ctx, tx))
	})

	t.Run("UpsertMetadataRecordIsInsertIfAbsent", func(t *testing.T) {
		st := initDB(t)

		fp := "aa00000000000000000000000000000000000000000000000000000000000000"
		require.NoError(t, st.UpsertMetadataRecord(ctx, &schema.MetadataRecord{
			Fingerprint: fp,
			Raw:         []byte(`{"name":"first"}`),
			Parsed:      datatypes.JSON(`{"name":"first"}`),
		}))

		// A second write with the same fingerprint is a no-op
		require.NoError(t, st.UpsertMetadataRecord(ctx, &schema.MetadataRecord{
			Fingerprint: fp,
			Raw:         []byte(`{"name":"second"}`),
		}))

		stored, err := st.GetMetadataRecord(ctx, fp)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, []byte(`{"name":"first"}`), stored.Raw)
	})

	t.Run("LinkTokenMetadata", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		fp := "bb00000000000000000000000000000000000000000000000000000000000000"
		require.NoError(t, st.UpsertMetadataRecord(ctx, &schema.MetadataRecord{
			Fingerprint: fp,
			Raw:         []byte(`{}`),
		}))
		require.NoError(t, st.SaveToken(ctx, buildTestToken(testContractAddr, "1", 100, 0)))

		uri := "https://example.com/1.json"
		require.NoError(t, st.LinkTokenMetadata(ctx, testContractAddr, "1", fp, &uri))

		stored, err := st.GetToken(ctx, testContractAddr, "1")
		require.NoError(t, err)
		require.NotNil(t, stored.MetadataFingerprint)
		assert.Equal(t, fp, *stored.MetadataFingerprint)
		require.NotNil(t, stored.TokenURI)
		assert.Equal(t, uri, *stored.TokenURI)
	})

	t.Run("SetContractFactsWritesOnce", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		name := "Original Name"
		symbol := "ORIG"
		require.NoError(t, st.SetContractFacts(ctx, testContractAddr, ContractFacts{
			Name:   &name,
			Symbol: &symbol,
		}))

		// A second resolution never clobbers the stored facts
		otherName := "Renamed"
		require.NoError(t, st.SetContractFacts(ctx, testContractAddr, ContractFacts{
			Name: &otherName,
		}))

		stored, err := st.GetContract(ctx, testContractAddr)
		require.NoError(t, err)
		require.NotNil(t, stored.Name)
		assert.Equal(t, "Original Name", *stored.Name)
		require.NotNil(t, stored.Symbol)
		assert.Equal(t, "ORIG", *stored.Symbol)
	})

	t.Run("SetContractFactsStoresABI", func(t *testing.T) {
		st := initDB(t)
		mustCreateContract(t, st, testContractAddr)

		abiFP := "cc00000000000000000000000000000000000000000000000000000000000000"
		require.NoError(t, st.SetContractFacts(ctx, testContractAddr, ContractFacts{
			ABI:            datatypes.JSON(`[{"type":"function","name":"tokenURI"}]`),
			ABIFingerprint: &abiFP,
		}))

		stored, err := st.GetContract(ctx, testContractAddr)
		require.NoError(t, err)
		assert.NotNil(t, stored.ABI)
		require.NotNil(t, stored.ABIFingerprint)
		assert.Equal(t, abiFP, *stored.ABIFingerprint)
	})
}
