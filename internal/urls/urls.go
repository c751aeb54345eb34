package urls

// Cloud endpoints for the Cync service.
// The relay host/port are fixed by the firmware; the REST API base is
// shared by discovery and credential exchange.

// CloudServerHost is the TCP relay host the event stream connects to.
const CloudServerHost = "cm.gelighting.com"

// CloudServerPort is the relay's TLS port.
const CloudServerPort = 23779

// APIBase is the base URL of the cloud REST API.
const APIBase = "https://api.gelighting.com"

// DeviceListPath is the device list endpoint, formatted with the user id.
const DeviceListPath = "/v2/user/%s/subscribe/devices"

// DevicePropertiesPath is the per-device property endpoint, formatted
// with the product id and device id.
const DevicePropertiesPath = "/v2/product/%s/device/%s/property"
