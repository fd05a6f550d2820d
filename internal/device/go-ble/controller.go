package goble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/bluerepl/internal/bledb"
	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/groutine"
	"github.com/srg/bluerepl/internal/ringchan"
)

const (
	// LibraryName identifies this backend in device.Controller.Name and the factory.
	LibraryName = "go-ble"

	// DefaultNotificationBuffer is the capacity of the notification queue
	DefaultNotificationBuffer = 128

	// DefaultConnectTimeout bounds Dial plus profile discovery
	DefaultConnectTimeout = 30 * time.Second
)

// Controller implements device.Controller on top of github.com/go-ble/ble.
type Controller struct {
	logger         *logrus.Logger
	connectTimeout time.Duration

	adapterOnce sync.Once
	adapter     Adapter
	adapterErr  error

	found atomic.Pointer[hashmap.Map[string, device.Peripheral]]

	connMutex sync.RWMutex
	client    Client
	peer      device.Peripheral
	profile   *ble.Profile
	subs      map[*ble.Characteristic]bool // value: indicate
	cancel    context.CancelFunc

	notifications *ringchan.RingChannel[device.Notification]
}

// NewController creates a disconnected controller. The platform adapter is
// created on first use.
func NewController(logger *logrus.Logger, connectTimeout time.Duration) *Controller {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	c := &Controller{
		logger:         logger,
		connectTimeout: connectTimeout,
		subs:           make(map[*ble.Characteristic]bool),
		notifications:  ringchan.New[device.Notification](DefaultNotificationBuffer),
	}
	c.found.Store(hashmap.New[string, device.Peripheral]())
	return c
}

func (c *Controller) Name() string { return LibraryName }

func (c *Controller) getAdapter() (Adapter, error) {
	c.adapterOnce.Do(func() {
		c.adapter, c.adapterErr = AdapterFactory()
		if c.adapterErr != nil {
			c.logger.WithField("error", c.adapterErr).Error("Failed to create BLE adapter")
		}
	})
	return c.adapter, c.adapterErr
}

// Scan listens for advertisements for timeout and replaces the scan list.
// Reaching the timeout is the normal way for a scan to end.
func (c *Controller) Scan(ctx context.Context, timeout time.Duration) error {
	adapter, err := c.getAdapter()
	if err != nil {
		return err
	}

	found := hashmap.New[string, device.Peripheral]()
	c.found.Store(found)
	nextID := 0

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c.logger.WithField("timeout", timeout).Debug("Scanning for BLE peripherals...")
	// go-ble delivers advertisements from a single goroutine
	err = adapter.Scan(scanCtx, func(adv Advertisement) {
		if p, ok := found.Get(adv.Address); ok {
			p.RSSI = adv.RSSI
			if adv.Name != "" {
				p.Name = adv.Name
			}
			if p.Vendor == "" {
				p.Vendor = vendorName(adv.ManufacturerData)
			}
			found.Set(adv.Address, p)
			return
		}
		found.Set(adv.Address, device.Peripheral{
			ID:          nextID,
			Name:        adv.Name,
			Address:     adv.Address,
			RSSI:        adv.RSSI,
			Connectable: adv.Connectable,
			Vendor:      vendorName(adv.ManufacturerData),
		})
		nextID++
		c.logger.WithFields(logrus.Fields{
			"address": adv.Address,
			"name":    adv.Name,
			"rssi":    adv.RSSI,
		}).Debug("Discovered peripheral")
	})

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		err = nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ctx.Err()
	default:
		return NormalizeError(err)
	}

	c.logger.WithField("count", found.Len()).Info("Scan completed")
	return nil
}

// vendorName resolves the company identifier that leads manufacturer data.
// Unknown identifiers are shown as hex, short data yields "".
func vendorName(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	id := binary.LittleEndian.Uint16(data)
	if name := bledb.LookupVendor(id); name != "" {
		return name
	}
	return fmt.Sprintf("0x%04x", id)
}

// ScanList returns the peripherals of the last scan ordered by ID.
func (c *Controller) ScanList() []device.Peripheral {
	found := c.found.Load()
	list := make([]device.Peripheral, 0, found.Len())
	found.Range(func(_ string, p device.Peripheral) bool {
		list = append(list, p)
		return true
	})
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Connect dials address, discovers the full profile and keeps the client.
func (c *Controller) Connect(ctx context.Context, address string) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("device address is empty")
	}
	if c.client != nil {
		c.logger.WithField("address", address).Warn("Connection attempt while already connected")
		return device.ErrAlreadyConnected
	}

	adapter, err := c.getAdapter()
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"address": address,
		"timeout": c.connectTimeout,
	}).Info("Connecting to BLE device...")

	connCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	client, err := adapter.Dial(connCtx, address)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			c.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	peer := device.Peripheral{ID: -1, Address: address}
	if p, ok := c.found.Load().Get(address); ok {
		peer = p
	}

	c.client = client
	c.peer = peer
	c.profile = profile
	c.subs = make(map[*ble.Characteristic]bool)

	monitorCtx, monitorCancel := context.WithCancel(context.Background())
	c.cancel = monitorCancel

	// CoreBluetooth reports link loss through Disconnected()
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(monitorCtx, "ble-connection-monitor", func(ctx context.Context) {
			select {
			case <-dc.Disconnected():
				c.logger.WithField("address", address).Warn("Peripheral disconnected")
				c.dropConnection(client)
			case <-ctx.Done():
			}
		})
	}

	c.logger.WithFields(logrus.Fields{
		"address":  address,
		"services": len(profile.Services),
	}).Info("BLE device connected successfully")
	return nil
}

// dropConnection forgets client if it is still the active one.
func (c *Controller) dropConnection(client Client) {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	if c.client != client {
		return
	}
	c.client = nil
	c.profile = nil
	c.subs = make(map[*ble.Characteristic]bool)
}

// Disconnect cancels every subscription and then the connection.
func (c *Controller) Disconnect() error {
	c.connMutex.Lock()
	client := c.client
	if client == nil {
		c.connMutex.Unlock()
		return device.ErrNotConnected
	}
	subs := c.subs
	cancel := c.cancel
	c.client = nil
	c.profile = nil
	c.cancel = nil
	c.subs = make(map[*ble.Characteristic]bool)
	c.connMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	for char, ind := range subs {
		if err := client.Unsubscribe(char, ind); err != nil {
			c.logger.WithFields(logrus.Fields{
				"char_uuid": char.UUID.String(),
				"error":     err,
			}).Warn("Failed to unsubscribe during disconnect")
		}
	}

	if err := client.CancelConnection(); err != nil {
		c.logger.WithField("error", err).Warn("BLE device disconnected with errors")
		return NormalizeError(err)
	}
	c.logger.Info("BLE device disconnected successfully")
	return nil
}

func (c *Controller) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.client != nil
}

func (c *Controller) Connected() (device.Peripheral, bool) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	if c.client == nil {
		return device.Peripheral{}, false
	}
	return c.peer, true
}

// Services returns the discovered profile in discovery order.
func (c *Controller) Services() ([]device.ServiceInfo, error) {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	if c.client == nil {
		return nil, device.ErrNotConnected
	}

	result := make([]device.ServiceInfo, 0, len(c.profile.Services))
	for _, svc := range c.profile.Services {
		info := device.ServiceInfo{UUID: device.NormalizeUUID(svc.UUID.String())}
		for _, char := range svc.Characteristics {
			info.Characteristics = append(info.Characteristics, device.CharacteristicInfo{
				UUID:       device.NormalizeUUID(char.UUID.String()),
				Properties: PropertyNames(char.Property),
			})
		}
		result = append(result, info)
	}
	return result, nil
}

// lookup finds a characteristic of the connected profile that supports want.
// Caller must hold connMutex.
func (c *Controller) lookup(serviceUUID, charUUID string, want ble.Property, op string) (Client, *ble.Characteristic, error) {
	if c.client == nil {
		return nil, nil, device.ErrNotConnected
	}

	for _, svc := range c.profile.Services {
		if !device.CompareUUID(svc.UUID.String(), serviceUUID) {
			continue
		}
		for _, char := range svc.Characteristics {
			if !device.CompareUUID(char.UUID.String(), charUUID) {
				continue
			}
			if want != 0 && char.Property&want == 0 {
				return nil, nil, fmt.Errorf("%w: characteristic %s does not support %s", device.ErrUnsupported, charUUID, op)
			}
			return c.client, char, nil
		}
		return nil, nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{serviceUUID, charUUID}}
	}
	return nil, nil, &device.NotFoundError{Resource: "service", UUIDs: []string{serviceUUID}}
}

func (c *Controller) Read(serviceUUID, charUUID string) ([]byte, error) {
	c.connMutex.RLock()
	client, char, err := c.lookup(serviceUUID, charUUID, ble.CharRead, "read")
	c.connMutex.RUnlock()
	if err != nil {
		return nil, err
	}

	data, err := client.ReadCharacteristic(char)
	if err != nil {
		return nil, NormalizeError(err)
	}
	return data, nil
}

func (c *Controller) Write(serviceUUID, charUUID string, data []byte, withResponse bool) error {
	want, op := ble.Property(ble.CharWriteNR), "write without response"
	if withResponse {
		want, op = ble.CharWrite, "write"
	}

	c.connMutex.RLock()
	client, char, err := c.lookup(serviceUUID, charUUID, want, op)
	c.connMutex.RUnlock()
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"char_uuid": charUUID,
		"bytes":     len(data),
		"response":  withResponse,
	}).Debug("Writing characteristic")
	return NormalizeError(client.WriteCharacteristic(char, data, !withResponse))
}

func (c *Controller) Notify(serviceUUID, charUUID string) error {
	return c.subscribe(serviceUUID, charUUID, false)
}

func (c *Controller) Indicate(serviceUUID, charUUID string) error {
	return c.subscribe(serviceUUID, charUUID, true)
}

func (c *Controller) subscribe(serviceUUID, charUUID string, ind bool) error {
	want, op := ble.Property(ble.CharNotify), "notify"
	if ind {
		want, op = ble.CharIndicate, "indicate"
	}

	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	client, char, err := c.lookup(serviceUUID, charUUID, want, op)
	if err != nil {
		return err
	}

	svc := device.NormalizeUUID(serviceUUID)
	chr := device.NormalizeUUID(char.UUID.String())
	err = client.Subscribe(char, ind, func(data []byte) {
		n := device.Notification{
			Service:        svc,
			Characteristic: chr,
			Data:           append([]byte(nil), data...),
			Indication:     ind,
			Time:           time.Now(),
		}
		if c.notifications.Send(n) {
			c.logger.WithField("char_uuid", chr).Warn("Notification queue full, dropped oldest value")
		}
	})
	if err != nil {
		return NormalizeError(err)
	}
	c.subs[char] = ind

	c.logger.WithFields(logrus.Fields{
		"service_uuid": svc,
		"char_uuid":    chr,
		"mode":         op,
	}).Info("Subscribed to characteristic")
	return nil
}

// Unsubscribe cancels the subscription made by Notify or Indicate.
func (c *Controller) Unsubscribe(serviceUUID, charUUID string) error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()
	client, char, err := c.lookup(serviceUUID, charUUID, 0, "unsubscribe")
	if err != nil {
		return err
	}

	ind, ok := c.subs[char]
	if !ok {
		ind = char.Property&ble.CharNotify == 0
	}
	if err := client.Unsubscribe(char, ind); err != nil {
		return NormalizeError(err)
	}
	delete(c.subs, char)
	return nil
}

func (c *Controller) Notifications() <-chan device.Notification {
	return c.notifications.C()
}

func (c *Controller) NotificationStats() device.NotificationStats {
	st := c.notifications.Stats()
	return device.NotificationStats{Sent: st.Sent, Dropped: st.Dropped, Queued: st.Queued}
}

// PropertyNames lists the names of the flags set in p.
func PropertyNames(p ble.Property) []string {
	flags := []struct {
		flag ble.Property
		name string
	}{
		{ble.CharBroadcast, "Broadcast"},
		{ble.CharRead, "Read"},
		{ble.CharWriteNR, "WriteWithoutResponse"},
		{ble.CharWrite, "Write"},
		{ble.CharNotify, "Notify"},
		{ble.CharIndicate, "Indicate"},
		{ble.CharSignedWrite, "AuthenticatedSignedWrites"},
		{ble.CharExtended, "ExtendedProperties"},
	}

	var names []string
	for _, f := range flags {
		if p&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

var _ device.Controller = (*Controller)(nil)
