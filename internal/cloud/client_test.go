package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/vuedl/internal/infrastructure/config"
	"github.com/nerrad567/vuedl/internal/infrastructure/logging"
	"github.com/nerrad567/vuedl/internal/usage"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(config.CloudConfig{
		Username: "user@example.com",
		Password: "s3cret",
		APIURL:   srv.URL + "/",
		AuthURL:  srv.URL + "/auth",
		ClientID: "client-123",
	}, 5*time.Second, logging.Discard())
	return c
}

func TestAuthenticate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth" {
			t.Errorf("request = %s %s, want POST /auth", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Amz-Target"); got != cognitoTarget {
			t.Errorf("X-Amz-Target = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != cognitoContentType {
			t.Errorf("Content-Type = %q", got)
		}

		var body initiateAuthRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body.AuthFlow != "USER_PASSWORD_AUTH" || body.ClientID != "client-123" ||
			body.AuthParameters.Username != "user@example.com" || body.AuthParameters.Password != "s3cret" {
			t.Errorf("auth body = %+v", body)
		}

		w.Write([]byte(`{"AuthenticationResult":{"IdToken":"tok-1","ExpiresIn":3600}}`)) //nolint:errcheck
	}))
	c.now = func() time.Time { return now }

	cred, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if cred.Token != "tok-1" {
		t.Errorf("Token = %q, want tok-1", cred.Token)
	}
	if !cred.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want %v", cred.ExpiresAt, now.Add(time.Hour))
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(error) bool
	}{
		{
			name:   "rejected",
			status: http.StatusBadRequest,
			body:   `{"__type":"NotAuthorizedException"}`,
			wantErr: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.StatusCode == http.StatusBadRequest
			},
		},
		{
			name:    "missing token",
			status:  http.StatusOK,
			body:    `{"AuthenticationResult":{"ExpiresIn":3600}}`,
			wantErr: func(err error) bool { return errors.Is(err, ErrUnexpectedResponse) },
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>`,
			wantErr: func(err error) bool { return errors.Is(err, ErrUnexpectedResponse) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body)) //nolint:errcheck
			}))
			_, err := c.Authenticate(context.Background())
			if err == nil || !tt.wantErr(err) {
				t.Errorf("Authenticate() error = %v", err)
			}
		})
	}
}

func TestCustomerID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers" {
			t.Errorf("path = %q, want /customers", r.URL.Path)
		}
		if got := r.URL.Query().Get("email"); got != "user@example.com" {
			t.Errorf("email = %q", got)
		}
		if got := r.Header.Get("authtoken"); got != "tok" {
			t.Errorf("authtoken = %q, want tok", got)
		}
		w.Write([]byte(`{"customerGid":123456,"email":"user@example.com"}`)) //nolint:errcheck
	}))

	gid, err := c.CustomerID(context.Background(), "tok")
	if err != nil {
		t.Fatalf("CustomerID() error = %v", err)
	}
	if gid != 123456 {
		t.Errorf("CustomerID() = %d, want 123456", gid)
	}
}

func TestDevices_FlattensTree(t *testing.T) {
	const body = `{"customerGid":1,"devices":[
		{"deviceGid":100,"channels":[{"deviceGid":100,"channelNum":"1,2,3"},{"deviceGid":100,"channelNum":"4"}],
		 "devices":[{"deviceGid":200,"channels":[{"deviceGid":200,"channelNum":"1,2,3"}],"devices":[]}]},
		{"deviceGid":300,"channels":[],"devices":[]}
	]}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/customers/devices" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(body)) //nolint:errcheck
	}))

	got, err := c.Devices(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	want := []usage.Device{
		{GID: 100, Channel: "1,2,3"},
		{GID: 100, Channel: "4"},
		{GID: 200, Channel: "1,2,3"},
	}
	if len(got) != len(want) {
		t.Fatalf("Devices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("device[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDevices_Empty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"devices":[]}`)) //nolint:errcheck
	}))
	got, err := c.Devices(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Devices() = %v, want none", got)
	}
}

func TestUsage_Query(t *testing.T) {
	const payload = `{"firstUsageInstant":"2024-01-01T11:55:00Z","usageList":[0.1,null]}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		checks := map[string]string{
			"apiMethod":  "getChartUsage",
			"deviceGid":  "100",
			"channel":    "1,2,3",
			"start":      "2024-01-01T11:55:00Z",
			"end":        "2024-01-01T12:54:59Z",
			"scale":      "1MIN",
			"energyUnit": "KilowattHours",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("query %s = %q, want %q", k, got, want)
			}
		}
		w.Write([]byte(payload)) //nolint:errcheck
	}))

	w := usage.Window{
		Start: time.Date(2024, 1, 1, 11, 55, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 12, 54, 59, 0, time.UTC),
	}
	body, err := c.Usage(context.Background(), "tok", usage.Device{GID: 100, Channel: "1,2,3"}, w, usage.ScaleMinute)
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if string(body) != payload {
		t.Errorf("Usage() body = %s, want raw payload", body)
	}
}

func TestUsage_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, strings.Repeat("x", 2*maxErrorBody), http.StatusBadGateway)
	}))

	_, err := c.Usage(context.Background(), "tok", usage.Device{GID: 1, Channel: "1"}, usage.Window{}, usage.ScaleMinute)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Usage() error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want 502", se.StatusCode)
	}
	if len(se.Body) > maxErrorBody {
		t.Errorf("Body length = %d, want <= %d", len(se.Body), maxErrorBody)
	}
}

func TestDumpTransport_RedactsSecrets(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "debug"}, "test", &logs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "s3cret") {
			t.Errorf("server did not receive the unmodified body: %s", body)
		}
		w.Write([]byte(`{"AuthenticationResult":{"IdToken":"tok-secret","ExpiresIn":60}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(config.CloudConfig{Username: "u", Password: "s3cret", AuthURL: srv.URL, ClientID: "c"}, time.Second, logger)
	if _, err := c.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "http request") || !strings.Contains(out, "http response") {
		t.Errorf("expected request and response dumps, got:\n%s", out)
	}
	for _, secret := range []string{"s3cret", "tok-secret"} {
		if strings.Contains(out, secret) {
			t.Errorf("log output leaks %q:\n%s", secret, out)
		}
	}
}

func TestDumpTransport_SilentAboveDebug(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "info"}, "test", &logs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"devices":[]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(config.CloudConfig{APIURL: srv.URL}, time.Second, logger)
	if _, err := c.Devices(context.Background(), "tok"); err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("info logger produced dump output:\n%s", logs.String())
	}
}

func TestDumpTransport_FileOnlyWhenConsoleQuiet(t *testing.T) {
	var console, file bytes.Buffer
	logger := logging.NewWithFile(config.LoggingConfig{Level: "warn"}, "test", &console, &file)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"__type":"NotAuthorizedException"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New(config.CloudConfig{Username: "u", Password: "s3cret", AuthURL: srv.URL, ClientID: "c"}, time.Second, logger)
	if _, err := c.Authenticate(context.Background()); err == nil {
		t.Fatal("Authenticate() succeeded against a 400")
	}

	if console.Len() != 0 {
		t.Errorf("console received dump output:\n%s", console.String())
	}
	out := file.String()
	for _, want := range []string{"http request", "http response", "NotAuthorizedException", "PASSWORD", "[redacted]"} {
		if !strings.Contains(out, want) {
			t.Errorf("file dump missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "s3cret") {
		t.Errorf("file dump leaks the password:\n%s", out)
	}
}
