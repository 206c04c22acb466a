package charm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncWipeRequiresConfirm(t *testing.T) {
	c := NewTestClient(t)
	require.NoError(t, c.Set([]byte("contact:1"), []byte("{}")))

	var out bytes.Buffer
	require.NoError(t, SyncCommand(c, &out, []string{"wipe"}))
	assert.Contains(t, out.String(), "--confirm")

	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	out.Reset()
	require.NoError(t, SyncCommand(c, &out, []string{"wipe", "--confirm"}))
	keys, err = c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSyncStatusCountsKinds(t *testing.T) {
	c := NewTestClient(t)
	require.NoError(t, c.Set([]byte("contact:1"), []byte("{}")))
	require.NoError(t, c.Set([]byte("opportunity:1"), []byte("{}")))
	require.NoError(t, c.Set([]byte("opportunity:2"), []byte("{}")))

	var out bytes.Buffer
	require.NoError(t, SyncCommand(c, &out, []string{"status"}))
	assert.Contains(t, out.String(), "Keys:      3 (contacts 1, opportunities 2")
	assert.Contains(t, out.String(), "Status: Not connected")
}

func TestSyncUnknownSubcommand(t *testing.T) {
	c := NewTestClient(t)
	assert.Error(t, SyncCommand(c, &bytes.Buffer{}, []string{"bogus"}))
}
