package device

import (
	"context"
	"time"
)

// Peripheral is a single entry of the scan list.
type Peripheral struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	RSSI        int    `json:"rssi"`
	Connectable bool   `json:"connectable"`
	// Vendor is the company named by the manufacturer data, if any was advertised.
	Vendor      string `json:"vendor,omitempty"`
}

// DisplayName returns the advertised name, or "unknown" when none was advertised.
func (p Peripheral) DisplayName() string {
	if p.Name == "" {
		return "unknown"
	}
	return p.Name
}

// CharacteristicInfo describes a discovered characteristic.
type CharacteristicInfo struct {
	UUID       string   `json:"uuid"`
	Properties []string `json:"properties"`
}

// ServiceInfo describes a discovered service and its characteristics.
type ServiceInfo struct {
	UUID            string               `json:"uuid"`
	Characteristics []CharacteristicInfo `json:"characteristics"`
}

// Notification is a value pushed by the peripheral on a subscribed characteristic.
type Notification struct {
	Service        string
	Characteristic string
	Data           []byte
	Indication     bool
	Time           time.Time
}

// NotificationStats counts notifications since the controller was created.
// Dropped values were overwritten because nobody drained the queue in time.
type NotificationStats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
	Queued  int   `json:"queued"`
}

// Scanner discovers advertising peripherals.
type Scanner interface {
	// Scan listens for advertisements for the given duration and replaces the scan list.
	Scan(ctx context.Context, timeout time.Duration) error
	// ScanList returns the peripherals found by the last scan, in discovery order.
	ScanList() []Peripheral
}

// GATTClient performs attribute operations on the connected peripheral.
// Service and characteristic UUIDs may be given in any form NormalizeUUID accepts.
type GATTClient interface {
	Services() ([]ServiceInfo, error)
	Read(serviceUUID, charUUID string) ([]byte, error)
	Write(serviceUUID, charUUID string, data []byte, withResponse bool) error
	// Notify subscribes to unacknowledged value changes.
	Notify(serviceUUID, charUUID string) error
	// Indicate subscribes to acknowledged value changes.
	Indicate(serviceUUID, charUUID string) error
	// Unsubscribe cancels an active notify or indicate subscription.
	Unsubscribe(serviceUUID, charUUID string) error
	// Notifications delivers values of every active subscription.
	Notifications() <-chan Notification
	NotificationStats() NotificationStats
}

// Controller is the full capability set of a BLE backend.
type Controller interface {
	Scanner
	GATTClient

	// Name identifies the backend, e.g. "go-ble".
	Name() string
	Connect(ctx context.Context, address string) error
	Disconnect() error
	IsConnected() bool
	// Connected returns the peripheral of the active connection.
	Connected() (Peripheral, bool)
}
