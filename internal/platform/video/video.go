// Package video generates meeting links for virtual consultations.
package video

import "strings"

// LinkGenerator builds deterministic meeting room URLs. The room name is
// derived from the appointment ID, so confirming the same appointment twice
// yields the same link.
type LinkGenerator struct {
	baseURL string
}

// NewLinkGenerator creates a generator rooted at the given base URL, for
// example https://meet.jit.si.
func NewLinkGenerator(baseURL string) *LinkGenerator {
	return &LinkGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

// MeetingLink returns the room URL for an appointment. The prejoin fragment
// makes Jitsi show the camera check screen before entering the call.
func (g *LinkGenerator) MeetingLink(appointmentID string) string {
	room := "MedHelpConsultation" + strings.ReplaceAll(appointmentID, "-", "")
	return g.baseURL + "/" + room + "#config.prejoinPageEnabled=true"
}
