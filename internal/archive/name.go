package archive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/vuedl/internal/usage"
)

// TimeLayout is the compact UTC form used inside file names.
const TimeLayout = "20060102T150405Z"

const (
	namePrefix = "vue_"
	nameExt    = ".json"
)

var namePattern = regexp.MustCompile(
	`^vue_(?P<gid>[0-9]+)_(?P<channel>[^_/\\]+)_(?P<start>[0-9]{8}T[0-9]{6}Z)-(?P<end>[0-9]{8}T[0-9]{6}Z)_(?P<scale>[0-9A-Z]+)\.json$`,
)

// Key identifies one raw response file.
type Key struct {
	Device usage.Device
	Scale  usage.Scale
	Window usage.Window
}

// Name encodes k as a file name.
func Name(k Key) (string, error) {
	if k.Device.GID <= 0 {
		return "", fmt.Errorf("%w: device gid %d", ErrInvalidKey, k.Device.GID)
	}
	if k.Device.Channel == "" || strings.ContainsAny(k.Device.Channel, `_/\`) {
		return "", fmt.Errorf("%w: channel %q", ErrInvalidKey, k.Device.Channel)
	}
	if _, err := usage.ParseScale(string(k.Scale)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if !k.Window.End.After(k.Window.Start) {
		return "", fmt.Errorf("%w: empty window %s", ErrInvalidKey, k.Window)
	}

	return fmt.Sprintf("%s%d_%s_%s-%s_%s%s",
		namePrefix,
		k.Device.GID,
		k.Device.Channel,
		k.Window.Start.UTC().Format(TimeLayout),
		k.Window.End.UTC().Format(TimeLayout),
		k.Scale,
		nameExt,
	), nil
}

// ParseName recovers the key from a file name produced by Name.
func ParseName(name string) (Key, error) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	field := func(n string) string { return m[namePattern.SubexpIndex(n)] }

	gid, err := strconv.ParseInt(field("gid"), 10, 64)
	if err != nil || gid <= 0 {
		return Key{}, fmt.Errorf("%w: %q: device gid", ErrInvalidName, name)
	}
	start, err := time.Parse(TimeLayout, field("start"))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: start: %w", ErrInvalidName, name, err)
	}
	end, err := time.Parse(TimeLayout, field("end"))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: end: %w", ErrInvalidName, name, err)
	}
	if !end.After(start) {
		return Key{}, fmt.Errorf("%w: %q: end before start", ErrInvalidName, name)
	}
	scale, err := usage.ParseScale(field("scale"))
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %w", ErrInvalidName, name, err)
	}

	return Key{
		Device: usage.Device{GID: gid, Channel: field("channel")},
		Scale:  scale,
		Window: usage.Window{Start: start, End: end},
	}, nil
}
