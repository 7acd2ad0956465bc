package token

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestIDString(t *testing.T) {
	require.Equal(t, "kanaria/7", NewID("kanaria", 7).String())
	require.Equal(t, "0xabc/0", NewID("0xabc", 0).String())
}

func TestParseID(t *testing.T) {
	id, err := ParseID("kanaria/42")
	require.NoError(t, err)
	require.Equal(t, NewID("kanaria", 42), id)

	// Collections may themselves contain slashes; the id is after the last one.
	id, err = ParseID("chain/kanaria/42")
	require.NoError(t, err)
	require.Equal(t, NewID("chain/kanaria", 42), id)
}

func TestParseIDRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "kanaria", "/42", "kanaria/", "kanaria/notanumber", "kanaria/-1"} {
		_, err := ParseID(s)
		require.Error(t, err, "input %q", s)
	}
}

func TestIDRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := ID{
			Collection: rapid.StringMatching(`[a-z0-9:._-]{1,32}`).Draw(t, "collection"),
			Token:      rapid.Uint64().Draw(t, "token"),
		}
		parsed, err := ParseID(id.String())
		require.NoError(t, err)
		require.Equal(t, id, parsed)
	})
}

func TestIDAsJSONMapKey(t *testing.T) {
	m := map[ID]string{NewID("kanaria", 1): "beak"}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"kanaria/1":"beak"}`, string(data))

	var back map[ID]string
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, m, back)
}

func TestIsZero(t *testing.T) {
	require.True(t, ID{}.IsZero())
	require.False(t, NewID("kanaria", 0).IsZero())
	require.False(t, ID{Token: 1}.IsZero())
}

func TestStaticDirectoryLookup(t *testing.T) {
	d := NewStaticDirectory()
	_, err := d.Collection("missing")
	require.ErrorIs(t, err, ErrNoSuchCollaborator)
	_, err = d.Currency("missing")
	require.ErrorIs(t, err, ErrNoSuchCollaborator)
	_, err = d.MultiAsset("missing")
	require.ErrorIs(t, err, ErrNoSuchCollaborator)
}
