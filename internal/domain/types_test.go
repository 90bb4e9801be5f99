package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Address
		valid    bool
	}{
		{
			name:     "lowercase passthrough",
			input:    "0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85",
			expected: "0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85",
			valid:    true,
		},
		{
			name:     "checksummed input is lowercased",
			input:    "0x57f1887A8BF19b14fC0dF6Fd9B2acc9Af147eA85",
			expected: "0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85",
			valid:    true,
		},
		{
			name:  "missing prefix",
			input: "57f1887a8bf19b14fc0df6fd9b2acc9af147ea85",
			valid: true,
		},
		{name: "too short", input: "0x57f1887a", valid: false},
		{name: "not hex", input: "0xzz_not_an_address_zzzzzzzzzzzzzzzzzzzzzz", valid: false},
		{name: "empty", input: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := NewAddress(tt.input)
			if !tt.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.expected != "" {
				assert.Equal(t, tt.expected, addr)
			}
		})
	}
}

func TestAddressIsZero(t *testing.T) {
	assert.True(t, MustAddress(ZeroAddress).IsZero())
	assert.False(t, MustAddress("0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85").IsZero())
}

func TestNewTokenID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TokenID
		valid    bool
	}{
		{name: "simple", input: "42", expected: "42", valid: true},
		{name: "zero", input: "0", expected: "0", valid: true},
		{
			name:     "leading zeros normalized",
			input:    "0042",
			expected: "42",
			valid:    true,
		},
		{
			name:     "256-bit value",
			input:    "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			expected: "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			valid:    true,
		},
		{name: "negative", input: "-1", valid: false},
		{name: "hex", input: "0x2a", valid: false},
		{name: "empty", input: "", valid: false},
		{name: "garbage", input: "forty-two", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewTokenID(tt.input)
			if !tt.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestProvenanceNewerThan(t *testing.T) {
	tests := []struct {
		name  string
		p     Provenance
		other Provenance
		newer bool
	}{
		{
			name:  "higher block wins",
			p:     Provenance{BlockNumber: 101, LogIndex: 0},
			other: Provenance{BlockNumber: 100, LogIndex: 99},
			newer: true,
		},
		{
			name:  "same block higher log index wins",
			p:     Provenance{BlockNumber: 100, LogIndex: 5},
			other: Provenance{BlockNumber: 100, LogIndex: 4},
			newer: true,
		},
		{
			name:  "equal is not newer",
			p:     Provenance{BlockNumber: 100, LogIndex: 5},
			other: Provenance{BlockNumber: 100, LogIndex: 5},
			newer: false,
		},
		{
			name:  "older block",
			p:     Provenance{BlockNumber: 99, LogIndex: 50},
			other: Provenance{BlockNumber: 100, LogIndex: 0},
			newer: false,
		},
		{
			name:  "tx index never participates",
			p:     Provenance{BlockNumber: 100, TxIndex: 9, LogIndex: 5},
			other: Provenance{BlockNumber: 100, TxIndex: 0, LogIndex: 5},
			newer: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.newer, tt.p.NewerThan(tt.other))
		})
	}
}

func TestTokenKeyString(t *testing.T) {
	key := TokenKey{
		Contract: MustAddress("0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85"),
		TokenID:  "42",
	}
	assert.Equal(t, "0x57f1887a8bf19b14fc0df6fd9b2acc9af147ea85/42", key.String())
}
