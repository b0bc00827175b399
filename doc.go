/*
go-bciselect lets an operator pick one of several detected objects in a live
video feed using discrete directional commands, typically decoded from a
brain-computer interface.

Detection sets, commands and frames arrive independently.  A Node feeds them to
a selection.Tracker, draws the current selection onto each outgoing frame and
emits the planning ID of the object once the operator confirms it.

Transports live in the transport subdirectory (MQTT and serial), local video
capture in capture and the MJPEG server in stream.  See cmd/bciselect for the
wiring of a complete node.
*/
package bciselect
