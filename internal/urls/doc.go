// Package urls centralizes the cloud endpoints used by the client:
// the TCP relay the event stream connects to and the REST API paths
// used for device discovery.
package urls
