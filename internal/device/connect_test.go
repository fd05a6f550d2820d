package device_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/testutils"
)

func scannedController(t *testing.T) *testutils.RecordingController {
	t.Helper()
	rc := testutils.NewRecordingController()
	rc.Peripherals = []device.Peripheral{
		{Name: "Thermo", Address: "11:22:33:44:55:66"},
		{Name: "", Address: "AA:BB:CC:DD:EE:FF"},
		{Name: "LED Strip", Address: "01:02:03:04:05:06"},
	}
	require.NoError(t, rc.Scan(context.Background(), 0))
	return rc
}

func lastConnectAddress(t *testing.T, rc *testutils.RecordingController) string {
	t.Helper()
	calls := rc.Calls()
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	require.Equal(t, "connect", last.Op)
	return last.Address
}

func TestConnectByName(t *testing.T) {
	rc := scannedController(t)

	require.NoError(t, device.ConnectByName(context.Background(), rc, "LED Strip"))
	assert.Equal(t, "01:02:03:04:05:06", lastConnectAddress(t, rc))
}

func TestConnectByName_NotFound(t *testing.T) {
	rc := scannedController(t)

	err := device.ConnectByName(context.Background(), rc, "Ghost")
	var nf *device.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "peripheral", nf.Resource)
	assert.Equal(t, `peripheral "Ghost" not found`, err.Error())
	assert.False(t, rc.IsConnected())
}

func TestConnectByAddress_CaseInsensitive(t *testing.T) {
	rc := scannedController(t)

	require.NoError(t, device.ConnectByAddress(context.Background(), rc, "aa:bb:cc:dd:ee:ff"))
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", lastConnectAddress(t, rc))
}

func TestConnectByIndex(t *testing.T) {
	rc := scannedController(t)

	require.NoError(t, device.ConnectByIndex(context.Background(), rc, 0))
	assert.Equal(t, "11:22:33:44:55:66", lastConnectAddress(t, rc))

	rc2 := scannedController(t)
	err := device.ConnectByIndex(context.Background(), rc2, 7)
	var nf *device.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestConnectAuto(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		expected   string
	}{
		{"index", "2", "01:02:03:04:05:06"},
		{"address", "aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"},
		{"name", "Thermo", "11:22:33:44:55:66"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := scannedController(t)
			require.NoError(t, device.ConnectAuto(context.Background(), rc, tt.identifier))
			assert.Equal(t, tt.expected, lastConnectAddress(t, rc))
		})
	}
}

func TestConnectionError_IsComparesState(t *testing.T) {
	err := &device.ConnectionError{State: device.NotConnected, Msg: "other message"}
	assert.ErrorIs(t, err, device.ErrNotConnected)
	assert.NotErrorIs(t, err, device.ErrAlreadyConnected)
	assert.True(t, device.IsConnectionState(err, device.NotConnected))
}
