// Package ui renders the virtkeypad terminal interface.
//
// It has two halves. The run-once components (Header, Result, Printer) give
// the CLI commands their banners, result boxes and tables. The interactive
// half is the virtual keypad: KeypadModel is a Bubble Tea model that draws
// the mount's LCD from a display.Screen and turns terminal keys into keypad
// taps, and Bridge carries transport callbacks into the running program
// without ever blocking the transport's event loop.
//
// # Usage Pattern
//
//	screen := display.NewScreen()
//	bridge := ui.NewBridge(screen)
//	tr := transport.New(transport.Config{URL: url}, bridge.Options()...)
//	go tr.Run(ctx)
//	defer tr.Close()
//
//	model := ui.NewKeypadModel(url, screen, tr, false)
//	if err := ui.RunKeypad(ctx, model, bridge); err != nil {
//	    return err
//	}
//
// # Key Bindings
//
// Arrows, enter, esc, digits, + and - map to the keypad buttons of the same
// name; m is MENU and s or space is STOP. Tab toggles the pixel view, ? the
// full help, q quits.
package ui
