package callout

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const defaultJitsiBase = "https://meet.jit.si"

// MeetingLinker generates video-meeting room links for technician calls.
type MeetingLinker struct {
	baseURL string
}

func NewMeetingLinker(baseURL string) *MeetingLinker {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultJitsiBase
	}
	return &MeetingLinker{baseURL: strings.TrimRight(baseURL, "/")}
}

// NewRoomURL returns a fresh meeting URL with a unique room name.
func (l *MeetingLinker) NewRoomURL() string {
	room := fmt.Sprintf("technician-call-%s", strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s/%s", l.baseURL, room)
}
