// Package topic defines the cloud-to-device topic scheme.
// These values are the routing contract between the console and the vehicle
// bridge; changing them breaks compatibility with deployed bridges.
package topic

import (
	"fmt"
	"strings"
)

const (
	// Root is the namespace shared by all request and response topics.
	// Request pattern: c2d/{vehicleID}
	Root = "c2d"

	// SuffixResponse is the trailing segment of a vehicle's response topic.
	// Response pattern: c2d/{vehicleID}/rsvp
	SuffixResponse = "rsvp"

	// SuffixEvents is the trailing segment of a process's event channel.
	// Pattern: {hostname}/{program}/{pid}/events
	SuffixEvents = "events"

	// Wildcard is the single-level MQTT wildcard "+".
	Wildcard = "+"
)

// Pair is a vehicle's request/response topic pair. Distinct vehicles never
// share either topic.
type Pair struct {
	Request  string
	Response string
}

// Request returns the topic the vehicle listens on for fulfill requests.
func Request(vehicleID string) string {
	return Root + "/" + vehicleID
}

// Response returns the topic the vehicle publishes fulfill responses on.
func Response(vehicleID string) string {
	return Root + "/" + vehicleID + "/" + SuffixResponse
}

// PairFor returns the request/response topic pair for a vehicle.
func PairFor(vehicleID string) Pair {
	return Pair{
		Request:  Request(vehicleID),
		Response: Response(vehicleID),
	}
}

// ResponseWildcard returns the filter matching every vehicle's response topic.
// It is subscribed once at startup; routing to the right caller happens at the
// correlation layer, not the subscription layer.
func ResponseWildcard() string {
	return Root + "/" + Wildcard + "/" + SuffixResponse
}

// EventChannel returns the event channel topic unique to one process instance.
func EventChannel(hostname, program string, pid int) string {
	return fmt.Sprintf("%s/%s/%d/%s", hostname, program, pid, SuffixEvents)
}

// LogFileName maps an event channel topic to its log file name, replacing the
// topic separator with '=' so the name is filesystem safe.
func LogFileName(channel string) string {
	return strings.ReplaceAll(channel, "/", "=")
}
