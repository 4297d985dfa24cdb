package remote

import (
	"testing"

	"github.com/specialistvlad/yunosbridge/internal/result"
	"github.com/specialistvlad/yunosbridge/internal/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCall(t *testing.T) {
	testCases := []struct {
		name    string
		payload any
		want    Call
		wantErr bool
	}{
		{
			name:    "decoded object with array args",
			payload: map[string]any{"service": "Echo", "action": "ping", "callbackId": "cb1", "args": []any{"hello"}},
			want:    Call{Service: "Echo", Action: "ping", CallbackID: "cb1", ArgsJSON: `["hello"]`},
		},
		{
			name:    "json text with string args",
			payload: `{"service":"Echo","action":"ping","callbackId":"cb2","args":"[1,2]"}`,
			want:    Call{Service: "Echo", Action: "ping", CallbackID: "cb2", ArgsJSON: "[1,2]"},
		},
		{
			name:    "missing args",
			payload: `{"service":"Echo","action":"ping","callbackId":"cb3"}`,
			want:    Call{Service: "Echo", Action: "ping", CallbackID: "cb3", ArgsJSON: "[]"},
		},
		{name: "missing action", payload: `{"service":"Echo"}`, wantErr: true},
		{name: "not json", payload: `{`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeCall(tc.payload)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedExec)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := DecodeCall()
	assert.ErrorIs(t, err, ErrMalformedExec)
}

func TestResultMessage_CarriesEnvelopeText(t *testing.T) {
	env, err := result.New(result.StatusOK, result.String("hi")).Encode()
	require.NoError(t, err)

	msg, err := ResultMessage(taskqueue.Delivery{CallbackID: "cb9", Envelope: env})
	require.NoError(t, err)
	assert.Equal(t, "cb9", msg["callbackId"])

	back, err := result.Decode([]byte(msg["result"].(string)))
	require.NoError(t, err)
	v, err := back.Value()
	require.NoError(t, err)
	assert.Equal(t, "hi", string(v))
}
