package cloudapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("test-token")
	client.BaseURL = server.URL
	return client, server
}

func TestClient_ListDevices(t *testing.T) {
	var gotPath, gotToken string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("Access-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 101, "product_id": "1f0381", "name": "Home"},
			{"id": 102, "product_id": "9902c9", "name": "Plug"}
		]`))
	})
	defer server.Close()

	devices, err := client.ListDevices(context.Background(), "12345")
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}

	if gotPath != "/v2/user/12345/subscribe/devices" {
		t.Errorf("path = %q, want %q", gotPath, "/v2/user/12345/subscribe/devices")
	}
	if gotToken != "test-token" {
		t.Errorf("access token header = %q, want %q", gotToken, "test-token")
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}
	if devices[0].ID != 101 || devices[0].ProductID != "1f0381" || devices[0].Name != "Home" {
		t.Errorf("device[0] = %+v", devices[0])
	}
}

func TestClient_DeviceProperties(t *testing.T) {
	var gotPath string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bulbsArray": [
			{"deviceID": 216844946, "deviceType": 55, "displayName": "Dining Room Switch"},
			{"deviceID": 216844947, "deviceType": 146, "displayName": "Kitchen Bulb"}
		]}`))
	})
	defer server.Close()

	props, err := client.DeviceProperties(context.Background(), "1f0381", 101)
	if err != nil {
		t.Fatalf("DeviceProperties() error = %v", err)
	}

	if gotPath != "/v2/product/1f0381/device/101/property" {
		t.Errorf("path = %q, want %q", gotPath, "/v2/product/1f0381/device/101/property")
	}
	if len(props.Bulbs) != 2 {
		t.Fatalf("bulbs = %d, want 2", len(props.Bulbs))
	}
	bulb := props.Bulbs[0]
	if bulb.DeviceID != 216844946 || bulb.DeviceType != 55 || bulb.DisplayName != "Dining Room Switch" {
		t.Errorf("bulb[0] = %+v", bulb)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantAuth   bool
		wantAPI    bool
	}{
		{"forbidden is auth error", http.StatusForbidden, true, false},
		{"server error is api error", http.StatusInternalServerError, false, true},
		{"not found is api error", http.StatusNotFound, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})
			defer server.Close()

			_, err := client.ListDevices(context.Background(), "12345")
			if err == nil {
				t.Fatal("expected error")
			}
			if IsAuthError(err) != tt.wantAuth {
				t.Errorf("IsAuthError() = %v, want %v", IsAuthError(err), tt.wantAuth)
			}
			if IsAPIError(err) != tt.wantAPI {
				t.Errorf("IsAPIError() = %v, want %v", IsAPIError(err), tt.wantAPI)
			}
			if apiErr, ok := err.(*APIError); ok {
				if apiErr.StatusCode != tt.statusCode {
					t.Errorf("status code = %d, want %d", apiErr.StatusCode, tt.statusCode)
				}
			} else {
				t.Errorf("error type = %T, want *APIError", err)
			}
		})
	}
}

func TestClient_ParseError(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	})
	defer server.Close()

	_, err := client.ListDevices(context.Background(), "12345")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Type != ErrTypeParse {
		t.Errorf("error type = %v, want %v", apiErr.Type, ErrTypeParse)
	}
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient("test-token")
	client.BaseURL = "http://127.0.0.1:1" // nothing listens here

	_, err := client.ListDevices(context.Background(), "12345")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Type != ErrTypeNetwork {
		t.Errorf("error type = %v, want %v", apiErr.Type, ErrTypeNetwork)
	}
}
