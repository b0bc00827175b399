package message

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/swdee/go-bciselect/frame"
	"github.com/swdee/go-bciselect/selection"
)

var (
	// ErrMissingID is returned when a detected object carries no planning ID
	ErrMissingID = errors.New("object has no planning id")
	// ErrInvalidPosition is returned for a position that is not a finite number
	ErrInvalidPosition = errors.New("object position is not finite")
	// ErrShortFrame is returned when a frame envelope is truncated
	ErrShortFrame = errors.New("frame envelope truncated")
)

// Object is a detected object as sent on the objects topic.  The planning ID
// is carried in "id", or in "z" by publishers that send the object as a three
// component vector.
type Object struct {
	X  float64  `json:"x"`
	Y  float64  `json:"y"`
	ID *int     `json:"id,omitempty"`
	Z  *float64 `json:"z,omitempty"`
}

// Objects is the payload of the objects topic
type Objects struct {
	Objects []Object `json:"objects"`
}

// DecodeDetections parses an objects payload into a detection set.  The
// payload is either an Objects document or a bare array of objects.
func DecodeDetections(payload []byte) (selection.DetectionSet, error) {

	var objs []Object

	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objs); err != nil {
			return nil, fmt.Errorf("failed to parse objects: %w", err)
		}
	} else {
		var doc Objects
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse objects: %w", err)
		}
		objs = doc.Objects
	}

	set := make(selection.DetectionSet, 0, len(objs))

	for i, obj := range objs {

		if !finite(obj.X) || !finite(obj.Y) {
			return nil, fmt.Errorf("object %d: %w", i, ErrInvalidPosition)
		}

		var id int

		switch {
		case obj.ID != nil:
			id = *obj.ID
		case obj.Z != nil && finite(*obj.Z):
			id = int(math.Round(*obj.Z))
		default:
			return nil, fmt.Errorf("object %d: %w", i, ErrMissingID)
		}

		set = append(set, selection.Detection{
			X:          obj.X,
			Y:          obj.Y,
			PlanningID: id,
		})
	}

	return set, nil
}

// EncodeDetections builds an objects payload from a detection set
func EncodeDetections(set selection.DetectionSet) ([]byte, error) {

	doc := Objects{
		Objects: make([]Object, len(set)),
	}

	for i, det := range set {
		id := det.PlanningID
		doc.Objects[i] = Object{X: det.X, Y: det.Y, ID: &id}
	}

	return json.Marshal(doc)
}

// DecodeCommand returns the command token carried by a payload
func DecodeCommand(payload []byte) string {
	return string(bytes.TrimSpace(payload))
}

// EncodeObjectID returns the object id payload for a confirmed planning ID
func EncodeObjectID(planningID int) []byte {
	return []byte(strconv.Itoa(planningID))
}

// DecodeObjectID parses an object id payload
func DecodeObjectID(payload []byte) (int, error) {
	id, err := strconv.Atoi(string(bytes.TrimSpace(payload)))

	if err != nil {
		return 0, fmt.Errorf("invalid object id: %w", err)
	}

	return id, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// frame envelope header is width(4) + height(4) + encoding length(1)
const frameHeaderSize = 9

// EncodeFrame packs a raw frame into the binary envelope used on the image
// topic: big endian uint32 width and height, a one byte encoding name length,
// the encoding name and the pixel data
func EncodeFrame(raw frame.Raw) ([]byte, error) {

	if len(raw.Encoding) > 255 {
		return nil, fmt.Errorf("encoding name too long: %d", len(raw.Encoding))
	}

	buf := make([]byte, frameHeaderSize+len(raw.Encoding)+len(raw.Data))

	binary.BigEndian.PutUint32(buf[0:4], uint32(raw.Width))
	binary.BigEndian.PutUint32(buf[4:8], uint32(raw.Height))
	buf[8] = byte(len(raw.Encoding))

	n := copy(buf[frameHeaderSize:], raw.Encoding)
	copy(buf[frameHeaderSize+n:], raw.Data)

	return buf, nil
}

// DecodeFrame unpacks a frame envelope.  The returned Data aliases payload.
func DecodeFrame(payload []byte) (frame.Raw, error) {

	if len(payload) < frameHeaderSize {
		return frame.Raw{}, ErrShortFrame
	}

	encLen := int(payload[8])

	if len(payload) < frameHeaderSize+encLen {
		return frame.Raw{}, fmt.Errorf("%w: encoding name", ErrShortFrame)
	}

	return frame.Raw{
		Width:    int(binary.BigEndian.Uint32(payload[0:4])),
		Height:   int(binary.BigEndian.Uint32(payload[4:8])),
		Encoding: string(payload[frameHeaderSize : frameHeaderSize+encLen]),
		Data:     payload[frameHeaderSize+encLen:],
	}, nil
}
