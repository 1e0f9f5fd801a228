// Package logging provides structured logging for the virtual keypad tools.
//
// This package wraps a package-level zap logger with convenience functions
// for the patterns used across the client, the transport and the simulator.
//
// # Log Levels
//
//   - Debug: frame bytes, WebSocket payloads, dropped frames
//   - Info: connections, state changes, decoded text
//   - Warn: reconnects, unhandled commands
//   - Error: startup failures, fatal transport errors
//
// # Structured Logging
//
//	logging.Info("Mount connected",
//	    zap.String("remote_addr", "192.168.1.50:8000"),
//	    zap.String("mount", "observatory"),
//	)
//
// # Specialized Logging
//
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//	logging.LogStateChange(remoteAddr, "connecting", "open")
//	logging.LogWebSocketMessage(remoteAddr, "received", msgType, payload)
//	logging.LogFrame(remoteAddr, "sent", frame)
//
// # Configuration
//
// Logging is silent unless a level is given, either directly or through
// VIRTKEYPAD_LOG_LEVEL:
//
//	if err := logging.Initialize(levelFlag); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output is console-encoded on stderr.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and
// SetLogger are meant to be called once at startup or from tests.
package logging
