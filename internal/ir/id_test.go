package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatID(t *testing.T) {
	assert.Equal(t, ID("A000001"), FormatID(1))
	assert.Equal(t, ID("A000045"), FormatID(45))
	assert.Equal(t, ID("A368000"), FormatID(368000))
}

func TestParseID(t *testing.T) {
	id, err := ParseID("A000045")
	require.NoError(t, err)
	assert.Equal(t, 45, id.Number())

	for _, bad := range []string{"", "A45", "B000045", "A0000451", "a000045"} {
		_, err := ParseID(bad)
		assert.Error(t, err, "ParseID(%q)", bad)
	}
}

func TestID_Shard(t *testing.T) {
	assert.Equal(t, "000", ID("A000045").Shard())
	assert.Equal(t, "368", ID("A368123").Shard())
	assert.Equal(t, "A1", ID("A1").Shard())
}

func TestExtractIDs(t *testing.T) {
	text := "Cf. A000045, A000032 and A000045 (again); see also A001622."
	ids := ExtractIDs(text)
	assert.Equal(t, []ID{"A000045", "A000032", "A001622"}, ids)

	assert.Empty(t, ExtractIDs("no identifiers here"))
}
