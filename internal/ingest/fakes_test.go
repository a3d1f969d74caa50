package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/vuedl/internal/credential"
	"github.com/nerrad567/vuedl/internal/state"
	"github.com/nerrad567/vuedl/internal/usage"
)

var errTransient = errors.New("502 bad gateway")

type usageReply struct {
	body []byte
	err  error
}

type usageRequest struct {
	device usage.Device
	window usage.Window
	scale  usage.Scale
	token  string
	at     time.Time // wall clock, for spacing checks
}

// fakeAPI scripts cloud responses. Usage replies queued per device gid are
// consumed first; afterwards usageBody builds a response for the window.
type fakeAPI struct {
	now func() time.Time

	authCalls     int
	authErr       error
	customerCalls int
	deviceCalls   int
	devices       []usage.Device
	devicesErr    error

	replies   map[int64][]usageReply
	values    string
	requests  []usageRequest
	callOrder []string
}

func newFakeAPI(now func() time.Time, devices ...usage.Device) *fakeAPI {
	return &fakeAPI{
		now:     now,
		devices: devices,
		replies: map[int64][]usageReply{},
		values:  "[1.0,null,1.0,2.0]",
	}
}

func (f *fakeAPI) Authenticate(context.Context) (credential.Credential, error) {
	f.authCalls++
	f.callOrder = append(f.callOrder, "auth")
	if f.authErr != nil {
		return credential.Credential{}, f.authErr
	}
	return credential.Credential{Token: "fresh-token", ExpiresAt: f.now().Add(time.Hour)}, nil
}

func (f *fakeAPI) CustomerID(context.Context, string) (int64, error) {
	f.customerCalls++
	f.callOrder = append(f.callOrder, "customer")
	return 4242, nil
}

func (f *fakeAPI) Devices(context.Context, string) ([]usage.Device, error) {
	f.deviceCalls++
	f.callOrder = append(f.callOrder, "devices")
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return f.devices, nil
}

func (f *fakeAPI) Usage(_ context.Context, token string, d usage.Device, w usage.Window, scale usage.Scale) ([]byte, error) {
	f.requests = append(f.requests, usageRequest{device: d, window: w, scale: scale, token: token, at: time.Now()})
	f.callOrder = append(f.callOrder, "usage")
	if q := f.replies[d.GID]; len(q) > 0 {
		f.replies[d.GID] = q[1:]
		return q[0].body, q[0].err
	}
	return usageBody(w.Start, f.values), nil
}

func (f *fakeAPI) networkCalls() int {
	return f.authCalls + f.customerCalls + f.deviceCalls + len(f.requests)
}

func usageBody(first time.Time, values string) []byte {
	return fmt.Appendf(nil, `{"firstUsageInstant":%q,"usageList":%s}`, first.UTC().Format(time.RFC3339), values)
}

// memStore is an in-memory StateStore keeping a snapshot of every save.
type memStore struct {
	current state.State
	saves   []state.State
	saveErr error
}

func (m *memStore) Load() (*state.State, error) {
	st := copyState(m.current)
	return &st, nil
}

func (m *memStore) Save(st *state.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = copyState(*st)
	m.saves = append(m.saves, copyState(*st))
	return nil
}

func copyState(st state.State) state.State {
	if st.LastRunEnd != nil {
		t := *st.LastRunEnd
		st.LastRunEnd = &t
	}
	return st
}

// memSink stores points keyed like a relational primary key.
type memSink struct {
	failN  int
	calls  int
	points map[string]float64
}

func newMemSink() *memSink {
	return &memSink{points: map[string]float64{}}
}

func (m *memSink) Name() string { return "mem" }

func (m *memSink) Write(_ context.Context, points []usage.Point) error {
	m.calls++
	if m.calls <= m.failN {
		return errTransient
	}
	for _, p := range points {
		key := p.Timestamp.UTC().Format(time.RFC3339) + "|" + p.Device.Key() + "|" + string(p.Scale)
		if _, ok := m.points[key]; !ok {
			m.points[key] = p.Value
		}
	}
	return nil
}

func (m *memSink) keys() []string {
	out := make([]string, 0, len(m.points))
	for k := range m.points {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *memSink) dump() string {
	var b strings.Builder
	for _, k := range m.keys() {
		fmt.Fprintf(&b, "%s=%v\n", k, m.points[k])
	}
	return b.String()
}
