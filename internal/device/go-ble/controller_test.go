package goble

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/srg/bluerepl/internal/device"
)

type mockAdapter struct {
	mock.Mock
}

func (m *mockAdapter) Scan(ctx context.Context, handler func(Advertisement)) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

func (m *mockAdapter) Dial(ctx context.Context, address string) (Client, error) {
	args := m.Called(ctx, address)
	if c := args.Get(0); c != nil {
		return c.(Client), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	args := m.Called(force)
	return args.Get(0).(*ble.Profile), args.Error(1)
}

func (m *mockClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	return m.Called(c, value, noRsp).Error(0)
}

func (m *mockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	return m.Called(c, ind, h).Error(0)
}

func (m *mockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	return m.Called(c, ind).Error(0)
}

func (m *mockClient) CancelConnection() error {
	return m.Called().Error(0)
}

type ControllerTestSuite struct {
	suite.Suite

	adapter     *mockAdapter
	client      *mockClient
	ledChar     *ble.Characteristic
	batteryChar *ble.Characteristic
	controller  *Controller
	origFactory func() (Adapter, error)
}

func (s *ControllerTestSuite) SetupTest() {
	s.adapter = &mockAdapter{}
	s.client = &mockClient{}
	s.origFactory = AdapterFactory
	AdapterFactory = func() (Adapter, error) { return s.adapter, nil }

	s.ledChar = &ble.Characteristic{
		UUID:     ble.MustParse("19b10001-e8f2-537e-4f6c-d104768a1214"),
		Property: ble.CharRead | ble.CharWrite | ble.CharWriteNR | ble.CharNotify,
	}
	s.batteryChar = &ble.Characteristic{
		UUID:     ble.UUID16(0x2a19),
		Property: ble.CharRead | ble.CharIndicate,
	}
	profile := &ble.Profile{Services: []*ble.Service{
		{UUID: ble.MustParse("19b10000-e8f2-537e-4f6c-d104768a1214"), Characteristics: []*ble.Characteristic{s.ledChar}},
		{UUID: ble.UUID16(0x180f), Characteristics: []*ble.Characteristic{s.batteryChar}},
	}}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	s.controller = NewController(logger, time.Second)

	s.adapter.On("Scan", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		handler := args.Get(1).(func(Advertisement))
		handler(Advertisement{Name: "LED", Address: "AA:BB", RSSI: -40, Connectable: true, ManufacturerData: []byte{0x59, 0x00, 0x01}})
		handler(Advertisement{Address: "CC:DD", RSSI: -70})
		handler(Advertisement{Name: "Thermo", Address: "CC:DD", RSSI: -65, ManufacturerData: []byte{0x34, 0x12}})
	}).Return(context.DeadlineExceeded).Maybe()
	s.adapter.On("Dial", mock.Anything, "AA:BB").Return(s.client, nil).Maybe()
	s.client.On("DiscoverProfile", true).Return(profile, nil).Maybe()
}

func (s *ControllerTestSuite) TearDownTest() {
	AdapterFactory = s.origFactory
}

func (s *ControllerTestSuite) connect() {
	s.Require().NoError(s.controller.Scan(context.Background(), time.Millisecond))
	s.Require().NoError(s.controller.Connect(context.Background(), "AA:BB"))
}

func (s *ControllerTestSuite) TestScanBuildsOrderedList() {
	// GOAL: Verify a scan that ends on its timeout succeeds and merges repeated advertisements
	//
	// TEST SCENARIO: Three advertisements from two addresses → two entries, ids in discovery order

	s.Require().NoError(s.controller.Scan(context.Background(), time.Millisecond))

	list := s.controller.ScanList()
	s.Require().Len(list, 2)
	s.Equal(device.Peripheral{ID: 0, Name: "LED", Address: "AA:BB", RSSI: -40, Connectable: true, Vendor: "Nordic Semiconductor ASA"}, list[0])
	s.Equal(1, list[1].ID)
	s.Equal("Thermo", list[1].Name, "a later advertisement MUST fill in the missing name")
	s.Equal("0x1234", list[1].Vendor, "a later advertisement MUST fill in the missing vendor")
	s.Equal(-65, list[1].RSSI)
}

func (s *ControllerTestSuite) TestScanCancelledByCaller() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := &mockAdapter{}
	adapter.On("Scan", mock.Anything, mock.Anything).Return(context.Canceled)
	AdapterFactory = func() (Adapter, error) { return adapter, nil }
	ctrl := NewController(logrus.New(), time.Second)

	s.ErrorIs(ctrl.Scan(ctx, time.Second), context.Canceled)
}

func (s *ControllerTestSuite) TestConnectAndDisconnect() {
	s.connect()

	s.True(s.controller.IsConnected())
	peer, ok := s.controller.Connected()
	s.True(ok)
	s.Equal("LED", peer.Name)

	s.ErrorIs(s.controller.Connect(context.Background(), "AA:BB"), device.ErrAlreadyConnected)

	s.client.On("CancelConnection").Return(nil).Once()
	s.NoError(s.controller.Disconnect())
	s.False(s.controller.IsConnected())
	s.ErrorIs(s.controller.Disconnect(), device.ErrNotConnected)
}

func (s *ControllerTestSuite) TestServicesListsProfile() {
	s.connect()

	services, err := s.controller.Services()
	s.Require().NoError(err)
	s.Require().Len(services, 2)
	s.Equal("19b10000e8f2537e4f6cd104768a1214", services[0].UUID)
	s.Equal([]string{"Read", "WriteWithoutResponse", "Write", "Notify"}, services[0].Characteristics[0].Properties)
	s.Equal("180f", services[1].UUID)
	s.Equal("2a19", services[1].Characteristics[0].UUID)
}

func (s *ControllerTestSuite) TestReadWriteRouting() {
	s.connect()

	s.client.On("ReadCharacteristic", s.batteryChar).Return([]byte{0x64}, nil).Once()
	data, err := s.controller.Read("0000180f-0000-1000-8000-00805f9b34fb", "2A19")
	s.Require().NoError(err)
	s.Equal([]byte{0x64}, data)

	s.client.On("WriteCharacteristic", s.ledChar, []byte{0x01}, true).Return(nil).Once()
	s.NoError(s.controller.Write("19b10000-e8f2-537e-4f6c-d104768a1214", "19b10001-e8f2-537e-4f6c-d104768a1214", []byte{0x01}, false))

	s.client.On("WriteCharacteristic", s.ledChar, []byte{0x00}, false).Return(nil).Once()
	s.NoError(s.controller.Write("19b10000e8f2537e4f6cd104768a1214", "19b10001e8f2537e4f6cd104768a1214", []byte{0x00}, true))

	s.client.AssertExpectations(s.T())
}

func (s *ControllerTestSuite) TestLookupErrors() {
	s.connect()

	_, err := s.controller.Read("ffff", "2a19")
	var nf *device.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("service", nf.Resource)

	_, err = s.controller.Read("180f", "2a1a")
	s.Require().ErrorAs(err, &nf)
	s.Equal("characteristic", nf.Resource)

	err = s.controller.Write("180f", "2a19", []byte{1}, true)
	s.ErrorIs(err, device.ErrUnsupported, "battery level has no write property")
}

func (s *ControllerTestSuite) TestGATTRequiresConnection() {
	_, err := s.controller.Read("180f", "2a19")
	s.ErrorIs(err, device.ErrNotConnected)
	s.ErrorIs(s.controller.Notify("180f", "2a19"), device.ErrNotConnected)
	_, err = s.controller.Services()
	s.ErrorIs(err, device.ErrNotConnected)
}

func (s *ControllerTestSuite) TestSubscribeDeliversNotifications() {
	// GOAL: Verify notification handlers feed the controller queue with normalized UUIDs
	//
	// TEST SCENARIO: Indicate on battery level, fire handler → Notification on the channel

	s.connect()

	var handler ble.NotificationHandler
	s.client.On("Subscribe", s.batteryChar, true, mock.Anything).Run(func(args mock.Arguments) {
		handler = args.Get(2).(ble.NotificationHandler)
	}).Return(nil).Once()

	s.Require().NoError(s.controller.Indicate("180f", "2a19"))
	s.Require().NotNil(handler)
	handler([]byte{0x55})

	select {
	case n := <-s.controller.Notifications():
		s.Equal("180f", n.Service)
		s.Equal("2a19", n.Characteristic)
		s.Equal([]byte{0x55}, n.Data)
		s.True(n.Indication)
	case <-time.After(time.Second):
		s.Fail("notification was not delivered")
	}

	s.Equal(device.NotificationStats{Sent: 1}, s.controller.NotificationStats())

	s.client.On("Unsubscribe", s.batteryChar, true).Return(nil).Once()
	s.NoError(s.controller.Unsubscribe("180f", "2a19"))

	s.ErrorIs(s.controller.Notify("180f", "2a19"), device.ErrUnsupported)
}

func (s *ControllerTestSuite) TestNotificationOverflowIsCounted() {
	// GOAL: Verify a subscriber that never drains loses the oldest values and the loss is counted
	//
	// TEST SCENARIO: Fire capacity+5 notifications without reading → 5 dropped, queue full, newest kept last

	s.connect()

	var handler ble.NotificationHandler
	s.client.On("Subscribe", s.ledChar, false, mock.Anything).Run(func(args mock.Arguments) {
		handler = args.Get(2).(ble.NotificationHandler)
	}).Return(nil).Once()
	s.Require().NoError(s.controller.Notify("19b10000e8f2537e4f6cd104768a1214", "19b10001e8f2537e4f6cd104768a1214"))

	total := DefaultNotificationBuffer + 5
	for i := 0; i < total; i++ {
		handler([]byte{byte(i)})
	}

	s.Equal(device.NotificationStats{Sent: int64(total), Dropped: 5, Queued: DefaultNotificationBuffer}, s.controller.NotificationStats())

	first := <-s.controller.Notifications()
	s.Equal([]byte{5}, first.Data, "the oldest values MUST be the ones dropped")
}

func (s *ControllerTestSuite) TestDisconnectCancelsSubscriptions() {
	s.connect()

	s.client.On("Subscribe", s.ledChar, false, mock.Anything).Return(nil).Once()
	s.Require().NoError(s.controller.Notify("19b10000e8f2537e4f6cd104768a1214", "19b10001e8f2537e4f6cd104768a1214"))

	s.client.On("Unsubscribe", s.ledChar, false).Return(nil).Once()
	s.client.On("CancelConnection").Return(nil).Once()
	s.NoError(s.controller.Disconnect())
	s.client.AssertExpectations(s.T())
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"bluetooth off", errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), device.ErrBluetoothOff},
		{"not connected", errors.New("Device not connected"), device.ErrNotConnected},
		{"disconnected", errors.New("peripheral disconnected"), device.ErrNotConnected},
		{"already connected", errors.New("device already connected"), device.ErrAlreadyConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NormalizeError(tt.err)
			assert.ErrorIs(t, err, tt.expected)
			assert.Contains(t, err.Error(), tt.err.Error())
		})
	}

	other := errors.New("att: invalid handle")
	assert.Same(t, other, NormalizeError(other))
	assert.NoError(t, NormalizeError(nil))
}

func TestAdapterFactoryFailure(t *testing.T) {
	orig := AdapterFactory
	defer func() { AdapterFactory = orig }()
	AdapterFactory = func() (Adapter, error) { return nil, device.ErrBluetoothOff }

	ctrl := NewController(logrus.New(), 0)
	err := ctrl.Scan(context.Background(), time.Millisecond)
	require.ErrorIs(t, err, device.ErrBluetoothOff)
	assert.Equal(t, LibraryName, ctrl.Name())
}

func TestVendorName(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"known company", []byte{0x59, 0x00}, "Nordic Semiconductor ASA"},
		{"known company with payload", []byte{0x4c, 0x00, 0x02, 0x15}, "Apple, Inc."},
		{"unknown company", []byte{0xff, 0xfe}, "0xfeff"},
		{"too short", []byte{0x59}, ""},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vendorName(tt.data))
		})
	}
}
