package event

import (
	stderrors "errors"
	"testing"

	"realtime-hub/errors"

	"github.com/stretchr/testify/require"
)

func TestEncode_Uses_Variant_Tag(t *testing.T) {
	req := require.New(t)

	data, err := Encode(Presence{Of: 7, Online: true})
	req.NoError(err)
	req.JSONEq(`{"Status":{"user_id":7,"online":true}}`, string(data))

	data, err = Encode(Chat{To: 2, Content: "hi"})
	req.NoError(err)
	req.JSONEq(`{"Chat":{"to_user_id":2,"content":"hi"}}`, string(data))

	data, err = Encode(Error{Message: "nope"})
	req.NoError(err)
	req.JSONEq(`{"Error":{"message":"nope"}}`, string(data))
}

func TestDecode_Client_Variants(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		frame string
		want  RealtimeEvent
	}{
		{`{"Chat":{"to_user_id":2,"content":"hi"}}`, Chat{To: 2, Content: "hi"}},
		{`{"CallOffer":{"to_user_id":3,"sdp":"v=0"}}`, CallOffer{To: 3, SDP: "v=0"}},
		{`{"CallAnswer":{"to_user_id":3,"sdp":"v=0"}}`, CallAnswer{To: 3, SDP: "v=0"}},
		{`{"IceCandidate":{"to_user_id":4,"candidate":"candidate:1"}}`, IceCandidate{To: 4, Candidate: "candidate:1"}},
		{`{"EndCall":{"to_user_id":5}}`, EndCall{To: 5}},
		{`{"Status":{"user_id":1,"online":false}}`, Presence{Of: 1, Online: false}},
		{`{"Error":{"message":"x"}}`, Error{Message: "x"}},
	}
	for _, tt := range tests {
		got, err := Decode([]byte(tt.frame))
		req.NoError(err, tt.frame)
		req.Equal(tt.want, got)
	}
}

func TestDecode_Malformed_Frames(t *testing.T) {
	frames := []struct {
		name  string
		frame string
	}{
		{"Not JSON", `hello`},
		{"Array", `[1,2]`},
		{"Empty object", `{}`},
		{"Two variants", `{"EndCall":{"to_user_id":1},"Chat":{"to_user_id":1,"content":"a"}}`},
		{"Unknown variant", `{"Typing":{"to_user_id":1}}`},
		{"Missing field", `{"Chat":{"to_user_id":2}}`},
		{"Null field", `{"Chat":{"to_user_id":2,"content":null}}`},
		{"Wrong type", `{"Chat":{"to_user_id":"two","content":"hi"}}`},
		{"Body not object", `{"EndCall":5}`},
		{"Zero recipient", `{"EndCall":{"to_user_id":0}}`},
	}
	for _, tt := range frames {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			require.Error(t, err)
			require.True(t, stderrors.Is(err, errors.ErrProtocolViolation))
		})
	}
}

func TestEvent_Families(t *testing.T) {
	req := require.New(t)
	req.True(IsServerOnly(Presence{}))
	req.True(IsServerOnly(Error{}))
	req.False(IsServerOnly(Chat{}))

	req.True(IsSignal(CallOffer{}))
	req.True(IsSignal(EndCall{}))
	req.False(IsSignal(Chat{}))
	req.False(IsSignal(Presence{}))
}
