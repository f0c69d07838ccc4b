package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		expected    Identity
		expectError bool
	}{
		{
			name:     "lowercase address",
			raw:      "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d",
			expected: "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D",
		},
		{
			name:     "already checksummed",
			raw:      "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D",
			expected: "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D",
		},
		{
			name:     "uppercase without prefix handling",
			raw:      "0xBC4CA0EDA7647A8AB7C2061C2E118A18A936F13D",
			expected: "0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D",
		},
		{
			name:        "missing prefix",
			raw:         "bc4ca0eda7647a8ab7c2061c2e118a18a936f13",
			expectError: true,
		},
		{
			name:        "too short",
			raw:         "0x1234",
			expectError: true,
		},
		{
			name:        "empty",
			raw:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NormalizeIdentity(tt.raw)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
			assert.True(t, id.Valid())
		})
	}
}

func TestAssetURI(t *testing.T) {
	assert.Equal(t, "asset://0", AssetURI("", 0))
	assert.Equal(t, "asset://42", AssetURI("asset", 42))
	assert.Equal(t, "TestURI://7", AssetURI("TestURI", 7))
}

func TestParseAssetID(t *testing.T) {
	id, err := ParseAssetID("123")
	require.NoError(t, err)
	assert.Equal(t, AssetID(123), id)

	_, err = ParseAssetID("-1")
	assert.Error(t, err)

	_, err = ParseAssetID("abc")
	assert.Error(t, err)
}

func TestListingEligible(t *testing.T) {
	buyer := Identity("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D")
	other := Identity("0x0000000000000000000000000000000000000001")

	open := Listing{AssetID: 1, Price: 100}
	assert.True(t, open.Open())
	assert.True(t, open.Eligible(buyer))
	assert.True(t, open.Eligible(other))

	restricted := Listing{AssetID: 1, Price: 100, Buyer: &buyer}
	assert.False(t, restricted.Open())
	assert.True(t, restricted.Eligible(buyer))
	assert.False(t, restricted.Eligible(other))
}

func TestRoyaltySplit(t *testing.T) {
	tests := []struct {
		name            string
		payment         uint64
		expectedSeller  uint64
		expectedRoyalty uint64
	}{
		{"zero", 0, 0, 0},
		{"exact scenario from the sale flow", 1_000_000, 990_000, 10_000},
		{"truncation favors seller", 199, 198, 1},
		{"below one royalty unit", 99, 99, 0},
		{"one unit", 100, 99, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seller, royalty := RoyaltySplit(tt.payment)
			assert.Equal(t, tt.expectedSeller, seller)
			assert.Equal(t, tt.expectedRoyalty, royalty)
			// No rounding leak: the split always sums to the payment
			assert.Equal(t, tt.payment, seller+royalty)
		})
	}
}
