package capture

import (
	"fmt"

	"github.com/muurk/virtkeypad/internal/protocol"
)

// FrameReport describes one frame found in a captured message
type FrameReport struct {
	Body     []byte
	Checksum bool   // checksum valid
	Kind     string // "display", "heartbeat", "key", "other"
	Detail   string // decoded command or key event
	Err      error  // decode failure of a valid frame
}

// Analyze splits a captured payload into frames and decodes each one the
// way the receiving side would. Key frames from the client are decoded as
// key events.
func Analyze(direction string, payload []byte) []FrameReport {
	var reports []FrameReport
	for _, body := range protocol.SplitFrames(payload) {
		rep := FrameReport{Body: body}
		if len(body) < 2 {
			rep.Kind = "other"
			rep.Detail = "short frame"
			reports = append(reports, rep)
			continue
		}

		data, err := protocol.ValidateFrame(body)
		if err != nil {
			rep.Kind = "other"
			rep.Detail = err.Error()
			reports = append(reports, rep)
			continue
		}
		rep.Checksum = true

		switch {
		case direction == DirectionSent && (data[0] == protocol.KeyDownID || data[0] == protocol.KeyUpID) && len(data) == 2:
			rep.Kind = "key"
			rep.Detail = protocol.KeyEvent{Code: data[1], Pressed: data[0] == protocol.KeyDownID}.String()
		case data[0] == protocol.MsgTypeDisplay:
			rep.Kind = "display"
			cmd, err := protocol.DecodeCommand(protocol.Pack7to8(data[1:], false))
			if err != nil {
				rep.Err = err
			} else {
				rep.Detail = cmd.String()
			}
		case data[0] == protocol.MsgTypeHeartbeat:
			rep.Kind = "heartbeat"
		default:
			rep.Kind = "other"
			rep.Detail = fmt.Sprintf("message type %d", data[0])
		}
		reports = append(reports, rep)
	}
	return reports
}
