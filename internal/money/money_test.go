package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePositive(t *testing.T) {
	c, err := ParsePositive("12.50")
	require.NoError(t, err)
	assert.Equal(t, Cents(1250), c)

	_, err = ParsePositive("0")
	assert.ErrorIs(t, err, ErrNotPositive)

	_, err = ParsePositive("-3.00")
	assert.ErrorIs(t, err, ErrNotPositive)

	_, err = ParsePositive("1.005")
	assert.ErrorIs(t, err, ErrSubCent)

	_, err = ParsePositive("abc")
	assert.Error(t, err)
}

func TestFromDecimalSubCent(t *testing.T) {
	_, err := FromDecimal(decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, ErrSubCent)

	c, err := FromDecimal(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, Cents(1), c)
}

func TestPlatformFee(t *testing.T) {
	assert.Equal(t, Cents(30), PlatformFee(300))
	assert.Equal(t, Cents(10), PlatformFee(100))
	// 10% of 5 cents is 0.5, rounds half-up to 1.
	assert.Equal(t, Cents(1), PlatformFee(5))
	assert.Equal(t, Cents(0), PlatformFee(4))
}

func TestTotalJobCost(t *testing.T) {
	// 3 workers at $1.00 plus 10% fee.
	assert.Equal(t, Cents(330), TotalJobCost(3, 100))
	assert.Equal(t, Cents(110), TotalJobCost(1, 100))
}

func TestJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Cents(1250))
	require.NoError(t, err)
	assert.Equal(t, "12.50", string(b))

	var c Cents
	require.NoError(t, json.Unmarshal([]byte(`"7.25"`), &c))
	assert.Equal(t, Cents(725), c)

	require.NoError(t, json.Unmarshal([]byte(`7.25`), &c))
	assert.Equal(t, Cents(725), c)

	assert.Error(t, json.Unmarshal([]byte(`7.255`), &c))
}

func TestString(t *testing.T) {
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-3.00", Cents(-300).String())
}
