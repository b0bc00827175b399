package message

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-bciselect/frame"
	"github.com/swdee/go-bciselect/selection"
)

func TestDecodeDetections(t *testing.T) {

	tests := []struct {
		name    string
		payload string
		exp     selection.DetectionSet
	}{
		{
			name:    "id field",
			payload: `{"objects":[{"x":0,"y":0,"id":5},{"x":0.5,"y":-0.5,"id":9}]}`,
			exp: selection.DetectionSet{
				{X: 0, Y: 0, PlanningID: 5},
				{X: 0.5, Y: -0.5, PlanningID: 9},
			},
		},
		{
			name:    "z carries id",
			payload: `{"objects":[{"x":-0.25,"y":0.75,"z":3.0}]}`,
			exp:     selection.DetectionSet{{X: -0.25, Y: 0.75, PlanningID: 3}},
		},
		{
			name:    "id preferred over z",
			payload: `{"objects":[{"x":0,"y":0,"z":3,"id":4}]}`,
			exp:     selection.DetectionSet{{PlanningID: 4}},
		},
		{
			name:    "bare array",
			payload: ` [{"x":0.1,"y":0.2,"id":1}]`,
			exp:     selection.DetectionSet{{X: 0.1, Y: 0.2, PlanningID: 1}},
		},
		{
			name:    "empty",
			payload: `{"objects":[]}`,
			exp:     selection.DetectionSet{},
		},
		{
			name:    "no objects key",
			payload: `{}`,
			exp:     selection.DetectionSet{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			set, err := DecodeDetections([]byte(tc.payload))
			require.NoError(t, err)

			if diff := cmp.Diff(tc.exp, set); diff != "" {
				t.Errorf("detections mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeDetectionsErrors(t *testing.T) {
	_, err := DecodeDetections([]byte(`{"objects":[{"x":0,"y":0}]}`))
	assert.ErrorIs(t, err, ErrMissingID)

	_, err = DecodeDetections([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeDetections([]byte(`[{"x":"left","y":0,"id":1}]`))
	assert.Error(t, err)
}

func TestEncodeDetections(t *testing.T) {
	set := selection.DetectionSet{{X: 0.5, Y: -0.5, PlanningID: 9}}

	payload, err := EncodeDetections(set)
	require.NoError(t, err)

	got, err := DecodeDetections(payload)
	require.NoError(t, err)
	assert.Equal(t, set, got)
}

func TestCommandAndObjectID(t *testing.T) {
	assert.Equal(t, "Confirm", DecodeCommand([]byte(" Confirm\n")))

	assert.Equal(t, []byte("42"), EncodeObjectID(42))
	assert.Equal(t, []byte("-3"), EncodeObjectID(-3))

	id, err := DecodeObjectID([]byte("17\n"))
	require.NoError(t, err)
	assert.Equal(t, 17, id)

	_, err = DecodeObjectID([]byte("x"))
	assert.Error(t, err)
}

func TestFrameEnvelope(t *testing.T) {
	raw := frame.Raw{Width: 2, Height: 1, Encoding: frame.EncodingRGB8,
		Data: []byte{1, 2, 3, 4, 5, 6}}

	payload, err := EncodeFrame(raw)
	require.NoError(t, err)
	assert.Len(t, payload, 9+4+6)

	got, err := DecodeFrame(payload)
	require.NoError(t, err)

	if diff := cmp.Diff(raw, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}

	_, err = DecodeFrame(payload[:5])
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeFrame(payload[:10])
	assert.ErrorIs(t, err, ErrShortFrame)
}
