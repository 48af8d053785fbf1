package appium

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

func TestCapabilities(t *testing.T) {
	caps := Capabilities(map[string]interface{}{
		"platformName":       "Android",
		"platformVersion":    "12",
		"automationName":     "UiAutomator2",
		"noReset":            true,
		"appium:appActivity": "com.swaglabsmobileapp.MainActivity",
	})

	want := map[string]interface{}{
		"platformName":           "Android",
		"appium:platformVersion": "12",
		"appium:automationName":  "UiAutomator2",
		"appium:noReset":         true,
		"appium:appActivity":     "com.swaglabsmobileapp.MainActivity",
	}
	if len(caps) != len(want) {
		t.Fatalf("got %d capabilities, want %d: %v", len(caps), len(want), caps)
	}
	for k, v := range want {
		if caps[k] != v {
			t.Errorf("caps[%q] = %v, want %v", k, caps[k], v)
		}
	}
}

// fakeServer answers the handful of endpoints a Session touches.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session":
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{
					"sessionId":    "s1",
					"capabilities": map[string]interface{}{"platformName": "Android"},
				},
			})
		case "/session/s1/element":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["value"] == "test-Cart" {
				writeJSON(w, map[string]interface{}{
					"value": map[string]interface{}{w3cElementKey: "cart"},
				})
				return
			}
			writeW3CError(w, http.StatusNotFound, "no such element", "not found")
		case "/session/s1/element/cart/element":
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{w3cElementKey: "badge"},
			})
		case "/session/s1/element/badge/text":
			writeJSON(w, map[string]interface{}{"value": "2"})
		case "/session/s1/appium/device/activate_app":
			writeJSON(w, map[string]interface{}{"value": nil})
		case "/session/s1":
			writeJSON(w, map[string]interface{}{"value": nil})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSession_FindAndScopedLookup(t *testing.T) {
	server := fakeServer(t)

	s, err := NewSession(server.URL, map[string]interface{}{
		"platformName": "Android",
		"appPackage":   "com.swaglabsmobileapp",
	})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer s.Close()

	if s.AppID() != "com.swaglabsmobileapp" {
		t.Errorf("AppID() = %q", s.AppID())
	}

	cart, err := s.FindElement(core.AccessibilityID("test-Cart"))
	if err != nil {
		t.Fatalf("FindElement failed: %v", err)
	}
	if cart.ID() != "cart" {
		t.Errorf("ID() = %q, want cart", cart.ID())
	}

	badge, err := cart.FindElement(core.XPath(".//android.widget.TextView"))
	if err != nil {
		t.Fatalf("scoped FindElement failed: %v", err)
	}
	text, err := badge.Text()
	if err != nil || text != "2" {
		t.Errorf("Text() = %q, %v; want 2", text, err)
	}
}

func TestSession_NotFoundCarriesLocator(t *testing.T) {
	server := fakeServer(t)

	s, err := NewSession(server.URL, map[string]interface{}{"platformName": "Android"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	_, err = s.FindElement(core.AccessibilityID("test-Menu"))
	if !core.IsNotFound(err) {
		t.Fatalf("error = %v, want not-found", err)
	}
	ee, ok := err.(*core.ExecutionError)
	if !ok {
		t.Fatalf("error type = %T, want *core.ExecutionError", err)
	}
	if ee.Details["locator"] != "accessibility id=test-Menu" {
		t.Errorf("locator detail = %v", ee.Details["locator"])
	}
}

func TestSession_ActivateAppDefaultsToCapabilityPackage(t *testing.T) {
	server := fakeServer(t)

	s, err := NewSession(server.URL, map[string]interface{}{"platformName": "Android"})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	if err := s.ActivateApp(""); !errors.Is(err, core.ErrMissingRequired) {
		t.Errorf("ActivateApp without an app id: error = %v, want ErrMissingRequired", err)
	}

	s.appID = "com.swaglabsmobileapp"
	if err := s.ActivateApp(""); err != nil {
		t.Errorf("ActivateApp failed: %v", err)
	}
}

func TestNewSession_NoResetRelaunchesApp(t *testing.T) {
	tests := []struct {
		name string
		caps map[string]interface{}
		want []string
	}{
		{
			name: "noReset",
			caps: map[string]interface{}{"platformName": "Android", "appPackage": "com.swaglabsmobileapp", "noReset": true},
			want: []string{"terminate_app", "activate_app"},
		},
		{
			name: "full reset",
			caps: map[string]interface{}{"platformName": "Android", "appPackage": "com.swaglabsmobileapp", "noReset": false},
		},
		{
			name: "no app id",
			caps: map[string]interface{}{"platformName": "Android", "noReset": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch {
				case r.URL.Path == "/session":
					writeJSON(w, map[string]interface{}{
						"value": map[string]interface{}{"sessionId": "s1", "capabilities": map[string]interface{}{}},
					})
				case strings.HasPrefix(r.URL.Path, "/session/s1/appium/device/"):
					var body map[string]interface{}
					_ = json.NewDecoder(r.Body).Decode(&body)
					if body["appId"] != "com.swaglabsmobileapp" {
						t.Errorf("%s appId = %v", r.URL.Path, body["appId"])
					}
					calls = append(calls, strings.TrimPrefix(r.URL.Path, "/session/s1/appium/device/"))
					writeJSON(w, map[string]interface{}{"value": nil})
				default:
					writeJSON(w, map[string]interface{}{"value": nil})
				}
			}))
			defer server.Close()

			s, err := NewSession(server.URL, tt.caps)
			if err != nil {
				t.Fatalf("NewSession failed: %v", err)
			}
			defer s.Close()

			if strings.Join(calls, ",") != strings.Join(tt.want, ",") {
				t.Errorf("device calls = %v, want %v", calls, tt.want)
			}
		})
	}
}

func TestNewSession_RelaunchFailureClosesSession(t *testing.T) {
	deleted := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/session":
			writeJSON(w, map[string]interface{}{
				"value": map[string]interface{}{"sessionId": "s1", "capabilities": map[string]interface{}{}},
			})
		case r.URL.Path == "/session/s1/appium/device/terminate_app":
			writeW3CError(w, http.StatusInternalServerError, "unknown error", "app is not installed")
		case r.URL.Path == "/session/s1" && r.Method == http.MethodDelete:
			deleted = true
			writeJSON(w, map[string]interface{}{"value": nil})
		default:
			writeJSON(w, map[string]interface{}{"value": nil})
		}
	}))
	defer server.Close()

	_, err := NewSession(server.URL, map[string]interface{}{
		"platformName": "Android",
		"appPackage":   "com.swaglabsmobileapp",
		"noReset":      true,
	})
	if err == nil || !strings.Contains(err.Error(), "terminate com.swaglabsmobileapp") {
		t.Fatalf("NewSession error = %v, want terminate failure", err)
	}
	if !deleted {
		t.Error("session was not deleted after the relaunch failed")
	}
}
