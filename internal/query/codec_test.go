package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWideIntsSafeValuesUntouched(t *testing.T) {
	assert.Equal(t, int64(42), NormalizeWideInts(int64(42)))
	assert.Equal(t, int64(maxSafeInteger), NormalizeWideInts(int64(maxSafeInteger)))
	assert.Equal(t, int64(-maxSafeInteger), NormalizeWideInts(int64(-maxSafeInteger)))
	assert.Equal(t, "hello", NormalizeWideInts("hello"))
	assert.Equal(t, 1.5, NormalizeWideInts(1.5))
	assert.Nil(t, NormalizeWideInts(nil))
}

func TestNormalizeWideIntsStringEncodesWide(t *testing.T) {
	assert.Equal(t, "9007199254740992", NormalizeWideInts(int64(maxSafeInteger+1)))
	assert.Equal(t, "-9007199254740992", NormalizeWideInts(int64(-maxSafeInteger-1)))
	assert.Equal(t, "18446744073709551615", NormalizeWideInts(uint64(18446744073709551615)))
	assert.Equal(t, "9223372036854775807", NormalizeWideInts(json.Number("9223372036854775807")))
}

func TestNormalizeWideIntsWalksContainers(t *testing.T) {
	rows := []map[string]any{
		{"id": int64(maxSafeInteger + 10), "name": "a", "tags": []any{int64(1), int64(maxSafeInteger + 2)}},
		{"id": int64(3), "name": "b"},
	}
	out := NormalizeWideInts(rows).([]map[string]any)
	assert.Equal(t, "9007199254741001", out[0]["id"])
	assert.Equal(t, []any{int64(1), "9007199254740993"}, out[0]["tags"])
	assert.Equal(t, int64(3), out[1]["id"])
}
