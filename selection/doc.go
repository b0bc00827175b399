/*
Package selection tracks which of the currently detected objects the operator
has selected.

Detection sets and operator commands arrive independently.  The Tracker keeps
the selection index clamped into the latest detection set, maps the selected
detection's normalized position into frame pixels and emits the object's
planning ID when the operator confirms.  A confirmation lasts until the next
detection update.
*/
package selection
