package protocol

import (
	"fmt"

	"github.com/muurk/virtkeypad/internal/logging"
	"go.uber.org/zap"
)

// LoggingHandler returns a CommandHandler that logs every decoded command,
// then passes it on to next (which may be nil).
func LoggingHandler(remoteAddr string, next CommandHandler) CommandHandler {
	return func(cmd Command) {
		LogCommand(remoteAddr, cmd)
		if next != nil {
			next(cmd)
		}
	}
}

// LogCommand logs a decoded display command with type-specific fields
func LogCommand(remoteAddr string, cmd Command) {
	switch c := cmd.(type) {
	case DrawGlyphRun:
		logging.Info("🔤 Glyph run",
			zap.String("remote_addr", remoteAddr),
			zap.Uint8("col", c.Col),
			zap.Uint8("row", c.Row),
			zap.Int("count", len(c.Codes)),
			zap.String("text", printable(c.Codes)),
		)
	case DrawMonoTile:
		logging.Debug("🔳 Mono tile",
			zap.String("remote_addr", remoteAddr),
			zap.Uint8("col", c.Col),
			zap.Uint8("row", c.Row),
			zap.String("bits", fmt.Sprintf("% x", c.Bits[:])),
		)
	case DrawColorTile:
		logging.Debug("🟦 Color tile",
			zap.String("remote_addr", remoteAddr),
			zap.Uint8("col", c.Col),
			zap.Uint8("row", c.Row),
			zap.String("rows", fmt.Sprintf("% x", c.Rows[:])),
		)
	case SetCursor:
		logging.Info("➡️  Cursor set",
			zap.String("remote_addr", remoteAddr),
			zap.Uint8("col", c.Col),
			zap.Uint8("row", c.Row),
		)
	case HideCursor:
		logging.Info("Cursor hidden",
			zap.String("remote_addr", remoteAddr),
		)
	default:
		logging.Warn("Unhandled command",
			zap.String("remote_addr", remoteAddr),
			zap.String("command", cmd.String()),
		)
	}
}
