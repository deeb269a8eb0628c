package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsPayloadRaw(t *testing.T) {
	original := Envelope{Type: TypeTasksUpdated, Payload: TasksUpdated{BriefID: "b1", TaskIDs: []string{"t1"}, Status: "done"}}
	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, TypeTasksUpdated, decoded.Type)

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(again))
}

func TestDecodeRequiresType(t *testing.T) {
	_, err := Decode([]byte(`{"payload":{}}`))
	require.ErrorIs(t, err, ErrMissingType)
}
