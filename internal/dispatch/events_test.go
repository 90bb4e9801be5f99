package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/tokengrid/evm-indexer/internal/adapter"
	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/mocks"
	"github.com/tokengrid/evm-indexer/internal/reducer"
	"github.com/tokengrid/evm-indexer/internal/store"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

// recordingStore accepts every write; failing lets us drive the NAK path
type recordingStore struct {
	store.Store
	failing bool
	tokens  map[string]*schema.Token
}

func (s *recordingStore) SaveBlock(context.Context, *schema.Block) error {
	if s.failing {
		return domain.NewStorageError("save block", errors.New("connection refused"))
	}
	return nil
}

func (s *recordingStore) SaveTransaction(context.Context, *schema.Transaction) error {
	return nil
}

func (s *recordingStore) CreateContract(context.Context, *schema.Contract) error {
	return nil
}

func (s *recordingStore) GetToken(_ context.Context, contract, tokenID string) (*schema.Token, error) {
	t, ok := s.tokens[contract+"/"+tokenID]
	if !ok {
		return nil, nil
	}
	return t, nil
}

func (s *recordingStore) SaveToken(_ context.Context, token *schema.Token) error {
	if s.tokens == nil {
		s.tokens = make(map[string]*schema.Token)
	}
	s.tokens[token.ContractAddress+"/"+token.TokenID] = token
	return nil
}

func testEvent(t *testing.T) []byte {
	t.Helper()
	tokenID := domain.TokenID("42")
	from := domain.Address(domain.ZeroAddress)
	to := domain.MustAddress("0x2222222222222222222222222222222222222222")
	event := domain.ChainEvent{
		Kind:     domain.EventKindTransfer,
		Contract: domain.MustAddress(validContract),
		Prov:     domain.Provenance{BlockNumber: 100, TxIndex: 1, LogIndex: 2},
		Tx:       domain.TxDetails{Hash: "0xabc", From: to},
		Block:    domain.BlockData{Number: 100, Time: time.Unix(1700000000, 0)},
		TokenID:  &tokenID,
		From:     &from,
		To:       &to,
	}
	data, err := json.Marshal(&event)
	require.NoError(t, err)
	return data
}

func newTestConsumer(st store.Store) *eventConsumer {
	return &eventConsumer{
		reducer: reducer.New(st),
		json:    adapter.NewJSON(),
	}
}

func TestHandleMessageAcksApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	st := &recordingStore{}
	c := newTestConsumer(st)

	msg := mocks.NewMockJetStreamMessage(ctrl)
	msg.EXPECT().Metadata().Return(nil, nil)
	msg.EXPECT().Data().Return(testEvent(t))
	msg.EXPECT().Ack().Return(nil)

	c.handleMessage(context.Background(), msg)
	require.Contains(t, st.tokens, validContract+"/42")
}

func TestHandleMessageTermsUndecodable(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newTestConsumer(&recordingStore{})

	msg := mocks.NewMockJetStreamMessage(ctrl)
	msg.EXPECT().Metadata().Return(nil, nil)
	msg.EXPECT().Data().Return([]byte("{{not json"))
	msg.EXPECT().Term().Return(nil)

	c.handleMessage(context.Background(), msg)
}

func TestHandleMessageNaksOnStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newTestConsumer(&recordingStore{failing: true})

	msg := mocks.NewMockJetStreamMessage(ctrl)
	msg.EXPECT().Metadata().Return(nil, nil)
	msg.EXPECT().Data().Return(testEvent(t))
	msg.EXPECT().Nak().Return(nil)

	c.handleMessage(context.Background(), msg)
}

func TestHandleMessageTermsDomainRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// A mint for a live token is rejected and must not loop forever
	st := &recordingStore{tokens: map[string]*schema.Token{}}
	owner := "0x2222222222222222222222222222222222222222"
	st.tokens[validContract+"/42"] = &schema.Token{
		ContractAddress: validContract,
		TokenID:         "42",
		Standard:        schema.StandardERC721,
		Owner:           &owner,
		LastUpdateBlock: 50,
	}
	c := newTestConsumer(st)

	msg := mocks.NewMockJetStreamMessage(ctrl)
	msg.EXPECT().Metadata().Return(nil, nil)
	msg.EXPECT().Data().Return(testEvent(t))
	msg.EXPECT().Term().Return(nil)

	c.handleMessage(context.Background(), msg)
}
