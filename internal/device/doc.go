// Package device defines the capability set the shell needs from a Bluetooth
// Low Energy stack and the types exchanged with it.
//
// The package contains:
//   - the Controller interface (scan, connect, disconnect, GATT read/write,
//     notify/indicate subscriptions, profile discovery)
//   - scan-list and GATT profile value types
//   - typed errors shared by every controller implementation
//   - UUID normalization and comparison helpers
//   - connect helpers that pick a scan-list entry by name, address or index
//
// Implementations live in sub-packages (see go-ble).
package device
