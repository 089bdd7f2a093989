// Package capability answers, once per process, whether the platform can
// deliver push notifications at all.
package capability

import (
	"errors"

	"github.com/penhub/pushkit/pkg/platform"
)

// ErrUnsupported means the platform lacks a background delivery context or
// the push API. Terminal for the process lifetime; callers short-circuit
// instead of attempting platform calls.
var ErrUnsupported = errors.New("push notifications are not supported on this platform")

// Detector holds the startup capability verdict. The verdict is immutable:
// capability does not appear or disappear without a restart.
type Detector struct {
	caps      platform.Capabilities
	supported bool
}

// Detect probes the platform exactly once.
func Detect(p platform.Prober) *Detector {
	caps := p.Capabilities()
	return &Detector{
		caps:      caps,
		supported: caps.ServiceWorker && caps.PushManager,
	}
}

// Supported reports whether push delivery is available.
func (d *Detector) Supported() bool {
	return d.supported
}

// Check returns ErrUnsupported when push delivery is unavailable.
func (d *Detector) Check() error {
	if !d.supported {
		return ErrUnsupported
	}
	return nil
}

// Capabilities returns the raw probe result.
func (d *Detector) Capabilities() platform.Capabilities {
	return d.caps
}
