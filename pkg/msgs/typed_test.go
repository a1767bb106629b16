package msgs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/ddrlink/pkg/framework"
)

func TestEncodeDecode(t *testing.T) {
	testCases := []struct {
		name string
		msg  SerializableMessage
	}{
		{"patch report", &PatchReport{Direction: DirectionUpload, Index: 3, Address: 384, Bytes: 1024, Total: 4096}},
		{"download summary", &TransferSummary{Bytes: 5000, Patches: 3, TransferId: "cs0c5jtb7l6g00bkfvbg"}},
		{"failed summary", &TransferSummary{Direction: DirectionUpload, Patches: 1, Error: "patch 1: timeout"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Encode(tc.msg)
			require.NoError(t, err)
			typed, err := DecodeTyped(data)
			require.NoError(t, err)
			require.Equal(t, tc.msg.TypeID(), typed.TypeId)
			require.True(t, typed.IsEvent())
			msg, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, tc.msg, msg)
		})
	}
}

type plain struct{}

func (plain) NewMessage() fx.Message { return plain{} }

func TestNotSerializable(t *testing.T) {
	_, err := Encode(plain{})
	require.Equal(t, ErrNotSerializable, err)
}

func TestUnknownType(t *testing.T) {
	data, err := (&Typed{TypeId: 0x1234, Message: []byte{8, 1}}).Encode()
	require.NoError(t, err)
	_, err = Decode(data)
	var ute *UnknownTypeError
	require.True(t, errors.As(err, &ute))
	require.Equal(t, uint32(0x1234), ute.TypeID)
}

func TestSummaryFailed(t *testing.T) {
	require.False(t, (&TransferSummary{}).Failed())
	require.True(t, (&TransferSummary{Error: "x"}).Failed())
	require.Equal(t, "upload", DirectionUpload.String())
	require.Equal(t, "download", DirectionDownload.String())
}
