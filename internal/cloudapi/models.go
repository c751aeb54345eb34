package cloudapi

// Device is one entry from the cloud device list. Hub-class devices
// front a mesh of bulbs and switches reachable through the relay.
type Device struct {
	ID        int64  `json:"id"`
	ProductID string `json:"product_id"` // hex string; SKU type is its value mod 1000
	Name      string `json:"name"`
}

// DeviceProperties is the property record returned for a hub-class
// device. Only the bulb array is consumed.
type DeviceProperties struct {
	Bulbs []Bulb `json:"bulbsArray"`
}

// Bulb is one mesh device record (bulb or switch) from a hub's
// properties.
type Bulb struct {
	DeviceID    uint32 `json:"deviceID"`
	DeviceType  int    `json:"deviceType"`
	DisplayName string `json:"displayName"`
}
