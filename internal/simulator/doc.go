// Package simulator is a stand-in for a mount's keypad endpoint.
//
// It accepts WebSocket clients on the "binary" subprotocol, paints a small
// main menu on connect and answers key frames the way a hand controller
// would: arrows move the cursor, ENTER opens or toggles an item, ESC goes
// back, MENU returns to the top and STOP halts everything. Every command it
// sends is mirrored on a display.Screen per session so tests and the CLI can
// see what each client should be showing.
//
// # Usage Example
//
//	srv := simulator.New(simulator.Config{Port: 8000})
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// For tests, the Server is an http.Handler:
//
//	ts := httptest.NewServer(simulator.New(simulator.Config{HeartbeatInterval: -1}))
//	defer ts.Close()
package simulator
