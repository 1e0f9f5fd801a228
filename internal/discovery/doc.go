// Package discovery finds keypad-capable telescope mounts with mDNS.
//
// Mounts answer "_http._tcp" browses for their web interface. An entry is
// treated as a keypad endpoint when its TXT records carry a "keypad" key (the
// simulator advertises one) or when its instance or host name looks like a
// mount ("10micron", "GM2000", ...). The keypad port comes from the TXT value
// and defaults to 8000.
//
// # Usage Example
//
//	mounts, err := discovery.ScanForMounts(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range mounts {
//	    fmt.Printf("%s -> %s\n", m.Instance, m.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Mounts must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
