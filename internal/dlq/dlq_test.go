package dlq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_RoundTripsRawBytes(t *testing.T) {
	entry := Entry{
		ID:         "a1b2",
		Raw:        []byte(`{"type":"obs_st","obs":"broken"}`),
		Peer:       "192.168.1.50:50222",
		ReceivedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Error:      "observation payload is not an array",
		Reason:     ReasonMalformed,
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var got Entry
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, entry.Raw, got.Raw, "raw frame must survive dead-lettering byte for byte")
	assert.Equal(t, entry.Reason, got.Reason)
	assert.Equal(t, entry.ReceivedAt, got.ReceivedAt)
}

func TestNoOpQueue(t *testing.T) {
	q := NewNoOpQueue()
	assert.NoError(t, q.Write(context.Background(), Entry{Reason: ReasonUnrecognized}))
	assert.NoError(t, q.Close())
}
