// Package display keeps the state of the keypad's 16x5 LCD.
//
// A Screen applies decoded protocol commands: glyph runs write the text
// grid, mono and color tiles write a 128x60 pixel plane, and SetCursor /
// HideCursor move or hide the selection rectangle. Coordinates on the wire
// are 1-based; anything outside the LCD is dropped cell by cell.
//
// Usage:
//
//	screen := display.NewScreen()
//	t := transport.New(cfg, transport.WithCommandHandler(func(c protocol.Command) {
//	    screen.Apply(c)
//	}))
//	fmt.Println(screen.String())
package display
