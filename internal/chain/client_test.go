package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokengrid/evm-indexer/internal/domain"
	"github.com/tokengrid/evm-indexer/internal/mocks"
	"github.com/tokengrid/evm-indexer/internal/store/schema"
)

const testContract = "0x5555555555555555555555555555555555555555"

func encodeStringReturn(t *testing.T, method string, value string) []byte {
	t.Helper()
	var out []byte
	var err error
	switch method {
	case "tokenURI":
		out, err = tokenURIABI.Methods[method].Outputs.Pack(value)
	case "uri":
		out, err = uriABI.Methods[method].Outputs.Pack(value)
	case "baseURI":
		out, err = baseURIABI.Methods[method].Outputs.Pack(value)
	case "name":
		out, err = nameABI.Methods[method].Outputs.Pack(value)
	case "symbol":
		out, err = symbolABI.Methods[method].Outputs.Pack(value)
	}
	require.NoError(t, err)
	return out
}

func TestTokenURIERC721(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(encodeStringReturn(t, "tokenURI", "ipfs://QmExample/42.json"), nil)

	r := NewReader(client)
	id, _ := domain.NewTokenID("42")
	uri, err := r.TokenURI(context.Background(), domain.MustAddress(testContract), id, schema.StandardERC721)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmExample/42.json", uri)
}

func TestTokenURIERC1155(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(encodeStringReturn(t, "uri", "https://example.com/{id}.json"), nil)

	r := NewReader(client)
	id, _ := domain.NewTokenID("7")
	uri, err := r.TokenURI(context.Background(), domain.MustAddress(testContract), id, schema.StandardERC1155)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/{id}.json", uri)
}

func TestTokenURICallError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(nil, errors.New("execution reverted"))

	r := NewReader(client)
	id, _ := domain.NewTokenID("42")
	_, err := r.TokenURI(context.Background(), domain.MustAddress(testContract), id, schema.StandardERC721)
	require.Error(t, err)
}

func TestContractBaseURI(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(encodeStringReturn(t, "baseURI", "https://meta.example/tokens/"), nil)

	r := NewReader(client)
	base, err := r.ContractBaseURI(context.Background(), domain.MustAddress(testContract))
	require.NoError(t, err)
	assert.Equal(t, "https://meta.example/tokens/", base)
}

func TestContractName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(encodeStringReturn(t, "name", "Example Collection"), nil)

	r := NewReader(client)
	name, err := r.ContractName(context.Background(), domain.MustAddress(testContract))
	require.NoError(t, err)
	assert.Equal(t, "Example Collection", name)
}

func TestContractSymbol(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := mocks.NewMockEthClient(ctrl)
	client.EXPECT().
		CallContract(gomock.Any(), gomock.Any(), gomock.Nil()).
		Return(encodeStringReturn(t, "symbol", "EXC"), nil)

	r := NewReader(client)
	symbol, err := r.ContractSymbol(context.Background(), domain.MustAddress(testContract))
	require.NoError(t, err)
	assert.Equal(t, "EXC", symbol)
}
