package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/recync/internal/cloudapi"
	"github.com/muurk/recync/internal/logging"
	"github.com/muurk/recync/internal/protocol"
	"github.com/muurk/recync/internal/session"
)

// skuTypeHub is the SKU class of hub devices. Only hubs carry a bulb
// array worth enumerating.
const skuTypeHub = 897

// Device type codes observed in bulbsArray, split by hardware class.
var (
	switchDeviceTypes = map[int]struct{}{55: {}, 68: {}}
	bulbDeviceTypes   = map[int]struct{}{57: {}, 146: {}}
)

// SKUType derives the SKU class from a hex product id: the low three
// decimal digits of its integer value. Unparseable product ids map to
// class 0, which matches nothing.
func SKUType(productID string) int {
	v, err := strconv.ParseInt(productID, 16, 64)
	if err != nil {
		return 0
	}
	return int(v % 1000)
}

// HardwareClass names the hardware class of a bulbsArray device type.
func HardwareClass(deviceType int) string {
	if _, ok := switchDeviceTypes[deviceType]; ok {
		return "switch"
	}
	if _, ok := bulbDeviceTypes[deviceType]; ok {
		return "bulb"
	}
	return "unknown"
}

// Coordinator glues discovery to the relay session: it enumerates the
// account's mesh devices over REST, opens the persistent connection
// scoped to those devices, and keeps the last decoded status per device.
type Coordinator struct {
	api       *cloudapi.Client
	userID    string
	loginCode []byte

	// dialer overrides the session transport when non-nil
	dialer session.Dialer

	// filter narrows the discovered devices when non-empty
	filter map[uint32]struct{}

	mu      sync.Mutex
	session *session.Session
	bulbs   []cloudapi.Bulb
	data    map[string]*protocol.StatusUpdate
	meshID  [2]byte
}

// New creates a coordinator for one account. The login code is the
// opaque binary credential written on connect; the mesh id defaults to
// zero, which addresses the default mesh.
func New(api *cloudapi.Client, userID string, loginCode []byte) *Coordinator {
	return &Coordinator{
		api:       api,
		userID:    userID,
		loginCode: loginCode,
		data:      make(map[string]*protocol.StatusUpdate),
	}
}

// SetDialer overrides the relay transport. Must be called before Start.
func (c *Coordinator) SetDialer(dial session.Dialer) {
	c.dialer = dial
}

// SetDeviceFilter narrows the coordinator to a subset of the discovered
// devices. Must be called before Start; an empty filter keeps everything.
func (c *Coordinator) SetDeviceFilter(deviceIDs []uint32) {
	if len(deviceIDs) == 0 {
		c.filter = nil
		return
	}
	c.filter = make(map[uint32]struct{}, len(deviceIDs))
	for _, id := range deviceIDs {
		c.filter[id] = struct{}{}
	}
}

// SetMeshID overrides the mesh id addressed by outbound commands.
func (c *Coordinator) SetMeshID(meshID [2]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meshID = meshID
}

// Start discovers the account's devices and opens the relay session
// allow-listed to them. Discovery failures abort the start; connection
// failures do not, the session retries those forever.
func (c *Coordinator) Start(ctx context.Context) error {
	bulbs, err := c.Discover(ctx)
	if err != nil {
		return err
	}

	if c.filter != nil {
		kept := bulbs[:0]
		for _, b := range bulbs {
			if _, ok := c.filter[b.DeviceID]; ok {
				kept = append(kept, b)
			}
		}
		bulbs = kept
	}

	deviceIDs := make([]uint32, 0, len(bulbs))
	for _, b := range bulbs {
		deviceIDs = append(deviceIDs, b.DeviceID)
	}

	s := session.New(c.loginCode)
	if c.dialer != nil {
		s.SetDialer(c.dialer)
	}
	s.SetAllowedDevices(deviceIDs)
	s.SetUpdateCallback(c.handleStatus)

	c.mu.Lock()
	c.bulbs = bulbs
	c.session = s
	c.mu.Unlock()

	if err := s.Initialize(); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	logging.Info("Coordinator started",
		zap.Int("devices", len(bulbs)),
	)
	return nil
}

// Discover enumerates the account's hubs and flattens their bulb arrays.
// Start calls this; it is also usable on its own for listing devices
// without opening the relay connection.
func (c *Coordinator) Discover(ctx context.Context) ([]cloudapi.Bulb, error) {
	devices, err := c.api.ListDevices(ctx, c.userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	var bulbs []cloudapi.Bulb
	for _, d := range devices {
		if SKUType(d.ProductID) != skuTypeHub {
			logging.Debug("Skipping non-hub device",
				zap.Int64("id", d.ID),
				zap.String("product_id", d.ProductID),
			)
			continue
		}

		props, err := c.api.DeviceProperties(ctx, d.ProductID, d.ID)
		if err != nil {
			return nil, fmt.Errorf("properties of device %d: %w", d.ID, err)
		}
		bulbs = append(bulbs, props.Bulbs...)
	}

	return bulbs, nil
}

// handleStatus records the latest decoded status per device. It runs on
// the session's callback goroutines.
func (c *Coordinator) handleStatus(deviceID string, status *protocol.StatusUpdate) {
	c.mu.Lock()
	c.data[deviceID] = status
	c.mu.Unlock()
}

// Session returns the relay session, or nil before Start.
func (c *Coordinator) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Bulbs returns the discovered devices of the bulb hardware class.
func (c *Coordinator) Bulbs() []cloudapi.Bulb {
	return c.filterByType(bulbDeviceTypes)
}

// Switches returns the discovered devices of the switch hardware class.
func (c *Coordinator) Switches() []cloudapi.Bulb {
	return c.filterByType(switchDeviceTypes)
}

// Devices returns every discovered mesh device.
func (c *Coordinator) Devices() []cloudapi.Bulb {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]cloudapi.Bulb, len(c.bulbs))
	copy(out, c.bulbs)
	return out
}

func (c *Coordinator) filterByType(types map[int]struct{}) []cloudapi.Bulb {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []cloudapi.Bulb
	for _, b := range c.bulbs {
		if _, ok := types[b.DeviceType]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Data returns a snapshot of the last known status per device id.
func (c *Coordinator) Data() map[string]*protocol.StatusUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*protocol.StatusUpdate, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// TurnOn sends a turn-on command to the given device.
func (c *Coordinator) TurnOn(deviceID string) error {
	return c.sendState(deviceID, true)
}

// TurnOff sends a turn-off command to the given device.
func (c *Coordinator) TurnOff(deviceID string) error {
	return c.sendState(deviceID, false)
}

func (c *Coordinator) sendState(deviceID string, on bool) error {
	id, err := strconv.ParseUint(deviceID, 10, 32)
	if err != nil {
		return fmt.Errorf("bad device id %q: %w", deviceID, err)
	}

	c.mu.Lock()
	s := c.session
	meshID := c.meshID
	c.mu.Unlock()
	if s == nil {
		return fmt.Errorf("coordinator not started")
	}

	var inner []byte
	if on {
		inner = protocol.TurnOnPacket(meshID)
	} else {
		inner = protocol.TurnOffPacket(meshID)
	}
	return s.SendCommand(protocol.CommandCodeSetState, uint32(id), inner)
}

// Stop shuts down the relay session. Safe to call before Start.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}
