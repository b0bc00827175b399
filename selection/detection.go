package selection

// Detection is a single object reported by the detector for the current frame
type Detection struct {
	// X is the normalized horizontal position in [-1,1], left to right
	X float64
	// Y is the normalized vertical position in [-1,1], top to bottom
	Y float64
	// PlanningID is the identifier the planning consumer knows the object by.
	// It is not the index of the detection in its set.
	PlanningID int
}

// DetectionSet is the ordered list of detections received in one update.  The
// order is that reported by the detector and no identity is carried between
// successive sets other than by index.
type DetectionSet []Detection

// Count returns the number of detections in the set
func (d DetectionSet) Count() int {
	return len(d)
}

// clone returns a copy of the set so the caller may reuse its slice
func (d DetectionSet) clone() DetectionSet {
	if d == nil {
		return nil
	}

	out := make(DetectionSet, len(d))
	copy(out, d)

	return out
}
