// Package camera wraps the station's capture device behind a small surface
// the scan loop can poll. Only the capture goroutine touches a Capture.
package camera

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrDeviceUnavailable covers a busy, missing, or failing capture device.
var ErrDeviceUnavailable = errors.New("camera unavailable")

// Capture reads frames from a camera opened by index.
type Capture struct {
	cam *gocv.VideoCapture
	mat gocv.Mat
}

// Open acquires the device. Failure is surfaced as ErrDeviceUnavailable so
// callers can report it distinctly instead of retrying blind.
func Open(index int) (*Capture, error) {
	cam, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: open device %d: %v", ErrDeviceUnavailable, index, err)
	}
	return &Capture{cam: cam, mat: gocv.NewMat()}, nil
}

// Read blocks for the next frame at the device's native rate.
func (c *Capture) Read() (image.Image, error) {
	if ok := c.cam.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("%w: frame read failed", ErrDeviceUnavailable)
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device handle.
func (c *Capture) Close() error {
	c.mat.Close()
	return c.cam.Close()
}
