package testutils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/srg/bluerepl/internal/device"
	"github.com/srg/bluerepl/internal/ringchan"
)

// NotificationBuffer is the capacity of the RecordingController notification queue.
const NotificationBuffer = 16

// Call is one recorded controller invocation.
type Call struct {
	Op             string
	Address        string
	Service        string
	Characteristic string
	Data           []byte
	WithResponse   bool
	Time           time.Time
}

// RecordingController is an in-memory device.Controller that records every call
// with its invocation time. GATT operations require a prior Connect.
type RecordingController struct {
	// Peripherals is what Scan publishes to the scan list.
	Peripherals []device.Peripheral
	// Profile is what Services returns once connected.
	Profile []device.ServiceInfo
	// ReadValues maps a characteristic UUID to the value Read returns.
	ReadValues map[string][]byte

	mu            sync.Mutex
	calls         []Call
	failures      map[string]error
	scanList      []device.Peripheral
	connected     *device.Peripheral
	notifications *ringchan.RingChannel[device.Notification]
}

// NewRecordingController returns a disconnected controller with an empty scan list.
func NewRecordingController() *RecordingController {
	return &RecordingController{
		ReadValues:    make(map[string][]byte),
		failures:      make(map[string]error),
		notifications: ringchan.New[device.Notification](NotificationBuffer),
	}
}

// Fail makes the next and every following op on characteristic return err.
// An empty characteristic matches any.
func (r *RecordingController) Fail(op, characteristic string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op+"|"+characteristic] = err
}

// SetConnected marks address as connected without recording a call.
func (r *RecordingController) SetConnected(address string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = &device.Peripheral{Address: address}
}

// Push queues a notification for Notifications. Once NotificationBuffer values
// are pending the oldest one is dropped.
func (r *RecordingController) Push(n device.Notification) {
	if n.Time.IsZero() {
		n.Time = time.Now()
	}
	r.notifications.Send(n)
}

// Calls returns a copy of the call log.
func (r *RecordingController) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ops returns the op names of the call log, e.g. "write", "read".
func (r *RecordingController) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

func (r *RecordingController) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Time = time.Now()
	r.calls = append(r.calls, c)

	if err, ok := r.failures[c.Op+"|"+c.Characteristic]; ok {
		return err
	}
	if err, ok := r.failures[c.Op+"|"]; ok {
		return err
	}
	return nil
}

func (r *RecordingController) requireConnection() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected == nil {
		return device.ErrNotConnected
	}
	return nil
}

func (r *RecordingController) Name() string { return "recording" }

func (r *RecordingController) Scan(_ context.Context, _ time.Duration) error {
	if err := r.record(Call{Op: "scan"}); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanList = make([]device.Peripheral, len(r.Peripherals))
	for i, p := range r.Peripherals {
		p.ID = i
		r.scanList[i] = p
	}
	return nil
}

func (r *RecordingController) ScanList() []device.Peripheral {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]device.Peripheral, len(r.scanList))
	copy(out, r.scanList)
	return out
}

func (r *RecordingController) Connect(_ context.Context, address string) error {
	if err := r.record(Call{Op: "connect", Address: address}); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected != nil {
		return device.ErrAlreadyConnected
	}
	p := device.Peripheral{Address: address}
	for _, sp := range r.scanList {
		if strings.EqualFold(sp.Address, address) {
			p = sp
			break
		}
	}
	r.connected = &p
	return nil
}

func (r *RecordingController) Disconnect() error {
	if err := r.record(Call{Op: "disconnect"}); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected == nil {
		return device.ErrNotConnected
	}
	r.connected = nil
	return nil
}

func (r *RecordingController) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected != nil
}

func (r *RecordingController) Connected() (device.Peripheral, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected == nil {
		return device.Peripheral{}, false
	}
	return *r.connected, true
}

func (r *RecordingController) Services() ([]device.ServiceInfo, error) {
	if err := r.requireConnection(); err != nil {
		return nil, err
	}
	return r.Profile, nil
}

func (r *RecordingController) Read(serviceUUID, charUUID string) ([]byte, error) {
	if err := r.requireConnection(); err != nil {
		return nil, err
	}
	if err := r.record(Call{Op: "read", Service: serviceUUID, Characteristic: charUUID}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ReadValues[charUUID], nil
}

func (r *RecordingController) Write(serviceUUID, charUUID string, data []byte, withResponse bool) error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.record(Call{Op: "write", Service: serviceUUID, Characteristic: charUUID, Data: append([]byte(nil), data...), WithResponse: withResponse})
}

func (r *RecordingController) Notify(serviceUUID, charUUID string) error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.record(Call{Op: "notify", Service: serviceUUID, Characteristic: charUUID})
}

func (r *RecordingController) Indicate(serviceUUID, charUUID string) error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.record(Call{Op: "indicate", Service: serviceUUID, Characteristic: charUUID})
}

func (r *RecordingController) Unsubscribe(serviceUUID, charUUID string) error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.record(Call{Op: "unsubscribe", Service: serviceUUID, Characteristic: charUUID})
}

func (r *RecordingController) Notifications() <-chan device.Notification {
	return r.notifications.C()
}

func (r *RecordingController) NotificationStats() device.NotificationStats {
	st := r.notifications.Stats()
	return device.NotificationStats{Sent: st.Sent, Dropped: st.Dropped, Queued: st.Queued}
}

var _ device.Controller = (*RecordingController)(nil)
