// Package capture records keypad traffic to JSON Lines files for protocol
// analysis, and reads them back.
//
// Each line is one WebSocket message with its direction, length and hex
// payload. Analyze splits a payload into frames and decodes them:
//
//	records, err := capture.Load("capture-20260101-120000.jsonl")
//	for _, rec := range records {
//	    payload, _ := rec.Payload()
//	    for _, f := range capture.Analyze(rec.Direction, payload) {
//	        fmt.Println(f.Kind, f.Detail)
//	    }
//	}
package capture
