package scanner

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"classattend/internal/attendance"
	"classattend/internal/qr"
	"classattend/internal/queue"
	"classattend/internal/store"
)

type fakeSource struct {
	mu     sync.Mutex
	frame  image.Image
	err    error
	closes int
}

func (f *fakeSource) Read() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeSource) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func badgeFrame(t *testing.T, id, name string) image.Image {
	t.Helper()
	img, err := qr.Encode(qr.Payload{StudentID: id, Name: name}, qr.DefaultSize)
	if err != nil {
		t.Fatalf("encode badge: %v", err)
	}
	return img
}

func blankFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func newTestRecorder(t *testing.T) *attendance.Recorder {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "attendance.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return attendance.NewRecorder(st, zap.NewNop())
}

func waitEvent(t *testing.T, events <-chan queue.Event) queue.Event {
	t.Helper()
	select {
	case evt := <-events:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return queue.Event{}
	}
}

func TestLoop_ScanCooldownAndDuplicate(t *testing.T) {
	src := &fakeSource{frame: badgeFrame(t, "S001", "Alice")}
	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)}

	loop := New(src, newTestRecorder(t), sess, bus, zap.NewNop(), DefaultCooldown)
	loop.interval = time.Millisecond
	loop.now = clock.now

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := bus.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	evt := waitEvent(t, events)
	if evt.Kind != queue.KindAccepted {
		t.Fatalf("first scan: kind %q, want accepted", evt.Kind)
	}
	if evt.StudentID != "S001" || evt.Detail == "" {
		t.Errorf("first scan event incomplete: %+v", evt)
	}

	// The badge stays in front of the camera. Within the cooldown window no
	// further decode happens, so no event arrives.
	select {
	case evt := <-events:
		t.Fatalf("event during cooldown: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}

	// Past the cooldown the same badge is re-decoded, and the recorder now
	// reports it as a same-day duplicate.
	clock.advance(DefaultCooldown + time.Second)
	evt = waitEvent(t, events)
	if evt.Kind != queue.KindDuplicate {
		t.Errorf("post-cooldown scan: kind %q, want duplicate", evt.Kind)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
	if n := src.closeCount(); n != 1 {
		t.Errorf("source closed %d times, want 1", n)
	}
}

func TestLoop_BlankFramesProduceNoEvents(t *testing.T) {
	src := &fakeSource{frame: blankFrame()}
	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}

	loop := New(src, newTestRecorder(t), sess, bus, zap.NewNop(), DefaultCooldown)
	loop.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := bus.Consume(ctx)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case evt := <-events:
		t.Fatalf("unexpected event from blank frames: %+v", evt)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	<-done
}

func TestLoop_DeviceFailureStopsWithEvent(t *testing.T) {
	src := &fakeSource{err: errors.New("device busy")}
	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}

	loop := New(src, newTestRecorder(t), sess, bus, zap.NewNop(), DefaultCooldown)
	loop.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := bus.Consume(ctx)

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	evt := waitEvent(t, events)
	if evt.Kind != queue.KindDeviceFailed {
		t.Errorf("kind %q, want device_failed", evt.Kind)
	}
	select {
	case err := <-done:
		if err == nil {
			t.Error("run should return the device error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on device failure")
	}
	if n := src.closeCount(); n != 1 {
		t.Errorf("source closed %d times, want 1", n)
	}
}

func TestLoop_OnFrameReceivesFrames(t *testing.T) {
	src := &fakeSource{frame: blankFrame()}
	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}

	loop := New(src, newTestRecorder(t), sess, bus, zap.NewNop(), DefaultCooldown)
	loop.interval = time.Millisecond

	frames := make(chan image.Image, 1)
	loop.OnFrame = func(img image.Image) {
		select {
		case frames <- img:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	select {
	case <-frames:
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered to OnFrame")
	}
	cancel()
	<-done
}

func TestScanFile_Accepted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "badge.png")
	if err := qr.WritePNG(path, qr.Payload{StudentID: "S001", Name: "Alice"}, qr.DefaultSize); err != nil {
		t.Fatalf("write badge: %v", err)
	}

	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := bus.Consume(ctx)

	if err := ScanFile(ctx, newTestRecorder(t), sess, bus, path); err != nil {
		t.Fatalf("scan file: %v", err)
	}
	evt := waitEvent(t, events)
	if evt.Kind != queue.KindAccepted || evt.StudentID != "S001" {
		t.Errorf("got %+v, want accepted S001", evt)
	}
}

func TestScanFile_NoQRIsReportedNotFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blank.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, blankFrame()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	f.Close()

	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _ := bus.Consume(ctx)

	if err := ScanFile(ctx, newTestRecorder(t), sess, bus, path); err != nil {
		t.Fatalf("scan file: %v", err)
	}
	evt := waitEvent(t, events)
	if evt.Kind != queue.KindDecodeFailed {
		t.Errorf("kind %q, want decode_failed", evt.Kind)
	}
}

func TestScanFile_UnreadableFileIsAnError(t *testing.T) {
	bus := queue.NewInMemory(16)
	sess := attendance.Session{Subject: "Math101", Room: "Room1"}

	err := ScanFile(context.Background(), newTestRecorder(t), sess, bus, filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Error("missing file should be an error, not a bus event")
	}
}
