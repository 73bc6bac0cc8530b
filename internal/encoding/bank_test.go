package encoding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/salescast/internal/contracts"
)

func TestFit_IndependentOfOrder(t *testing.T) {
	a := Fit(map[string][]string{"store_id": {"TX_1", "CA_1", "WI_1", "CA_2", "CA_1"}})
	b := Fit(map[string][]string{"store_id": {"WI_1", "CA_2", "TX_1", "CA_1"}})

	for _, store := range []string{"CA_1", "CA_2", "TX_1", "WI_1"} {
		ca, err := a.Encode("store_id", store)
		require.NoError(t, err)
		cb, err := b.Encode("store_id", store)
		require.NoError(t, err)
		assert.Equal(t, ca, cb, store)
	}

	code, _ := a.Encode("store_id", "CA_1")
	assert.Equal(t, 0, code)
	code, _ = a.Encode("store_id", "WI_1")
	assert.Equal(t, 3, code)
}

func TestEncode_Unknown(t *testing.T) {
	bank := Fit(map[string][]string{"cat_id": {"FOODS", "HOBBIES", "HOUSEHOLD"}})

	_, err := bank.Encode("cat_id", "GARDEN")
	require.Error(t, err)

	var unknown *contracts.UnknownCategoryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "cat_id", unknown.Column)
	assert.Equal(t, "GARDEN", unknown.Value)

	_, err = bank.Encode("dept_id", "FOODS_1")
	require.Error(t, err)
	assert.False(t, contracts.IsUnknownCategory(err))
}

func TestDecode(t *testing.T) {
	bank := Fit(map[string][]string{"event_type": {"Sporting", "NoEvent", "Cultural"}})

	got, err := bank.Decode("event_type", 1)
	require.NoError(t, err)
	assert.Equal(t, "NoEvent", got)

	_, err = bank.Decode("event_type", 3)
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	bank := Fit(map[string][]string{
		"cat_id":   {"HOUSEHOLD", "FOODS", "HOBBIES"},
		"state_id": {"WI", "CA", "TX"},
	})

	data, err := json.Marshal(bank)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cat_id":["FOODS","HOBBIES","HOUSEHOLD"],"state_id":["CA","TX","WI"]}`, string(data))

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat_id", "state_id"}, parsed.Columns())

	code, err := parsed.Encode("state_id", "TX")
	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestParse_RejectsUnsortedClasses(t *testing.T) {
	_, err := Parse([]byte(`{"cat_id":["HOBBIES","FOODS"]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"cat_id":["FOODS","FOODS"]}`))
	assert.Error(t, err)
}
