package goble

import (
	"context"

	"github.com/go-ble/ble"
)

// Advertisement is the subset of a received advertisement the scan list keeps.
type Advertisement struct {
	Name             string
	Address          string
	RSSI             int
	Connectable      bool
	// ManufacturerData starts with the little-endian company identifier.
	ManufacturerData []byte
}

// Adapter is the host radio: it scans and dials.
type Adapter interface {
	Scan(ctx context.Context, handler func(Advertisement)) error
	Dial(ctx context.Context, address string) (Client, error)
}

// Client is the subset of ble.Client the controller drives.
type Client interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// AdapterFactory creates the platform adapter (can be overridden in tests)
var AdapterFactory = func() (Adapter, error) {
	dev, err := newPlatformDevice()
	if err != nil {
		return nil, NormalizeError(err)
	}
	return &bleAdapter{dev: dev}, nil
}

// bleAdapter wraps ble.Device to implement Adapter
type bleAdapter struct {
	dev ble.Device
}

func (a *bleAdapter) Scan(ctx context.Context, handler func(Advertisement)) error {
	return a.dev.Scan(ctx, true, func(adv ble.Advertisement) {
		handler(Advertisement{
			Name:             adv.LocalName(),
			Address:          adv.Addr().String(),
			RSSI:             adv.RSSI(),
			Connectable:      adv.Connectable(),
			ManufacturerData: adv.ManufacturerData(),
		})
	})
}

func (a *bleAdapter) Dial(ctx context.Context, address string) (Client, error) {
	client, err := a.dev.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}
