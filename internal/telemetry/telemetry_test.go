package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/wall_robot/internal/imu"
	"github.com/relabs-tech/wall_robot/internal/orientation"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
	return func() time.Time { return t0 }
}

func newTestPipeline() (*Store, *Pipeline) {
	st := NewStore()
	p := NewPipeline(st, 0, 0)
	p.Now = fixedClock()
	return st, p
}

func stream(frames ...imu.Frame) *bytes.Reader {
	var b []byte
	for _, f := range frames {
		b = append(b, f[:]...)
	}
	return bytes.NewReader(b)
}

func TestStore_NoSnapshotBeforeOrientation(t *testing.T) {
	st := NewStore()
	st.Update(imu.Acceleration{Z: -1})
	snap, ok := st.Snapshot()
	if ok {
		t.Fatalf("expected no snapshot yet")
	}
	if snap.Accel == nil || snap.Accel.Z != -1 {
		t.Fatalf("accel=%v", snap.Accel)
	}
}

func TestStore_LastKnownValues(t *testing.T) {
	st := NewStore()
	st.Update(imu.Acceleration{X: 0.5})
	st.Update(imu.AngularVelocity{Z: 12})
	st.Update(imu.Orientation{Yaw: 90})
	st.Update(imu.Orientation{Yaw: 91})

	snap, ok := st.Snapshot()
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if snap.Accel == nil || snap.Accel.X != 0.5 {
		t.Fatalf("accel=%v", snap.Accel)
	}
	if snap.Gyro == nil || snap.Gyro.Z != 12 {
		t.Fatalf("gyro=%v", snap.Gyro)
	}
	if snap.Yaw == nil || *snap.Yaw != 91 {
		t.Fatalf("yaw=%v", snap.Yaw)
	}
	if snap.Facing != "East" {
		t.Fatalf("facing=%q want=East", snap.Facing)
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	st := NewStore()
	st.Update(imu.Acceleration{X: 0.5})
	st.Update(imu.Orientation{})
	snap, _ := st.Snapshot()
	snap.Accel.X = 9

	again, _ := st.Snapshot()
	if again.Accel.X != 0.5 {
		t.Fatalf("store mutated through snapshot: %v", again.Accel.X)
	}
}

func TestStore_SubscribeGetsLatestAndUpdates(t *testing.T) {
	st := NewStore()
	st.Update(imu.Orientation{Yaw: 10})

	id, ch := st.Subscribe(4)
	defer st.Unsubscribe(id)

	select {
	case snap := <-ch:
		if *snap.Yaw != 10 {
			t.Fatalf("yaw=%v want=10", *snap.Yaw)
		}
	case <-time.After(time.Second):
		t.Fatalf("no initial snapshot")
	}

	st.Update(imu.Orientation{Yaw: 20})
	select {
	case snap := <-ch:
		if *snap.Yaw != 20 {
			t.Fatalf("yaw=%v want=20", *snap.Yaw)
		}
	case <-time.After(time.Second):
		t.Fatalf("no update")
	}
}

func TestStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	st := NewStore()
	id, _ := st.Subscribe(1)
	defer st.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			st.Update(imu.Orientation{Yaw: float64(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
}

func TestStore_UnsubscribeClosesChannel(t *testing.T) {
	st := NewStore()
	id, ch := st.Subscribe(1)
	st.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	st.Unsubscribe(id) // second call is a no-op
}

func TestSnapshot_JSONFieldNames(t *testing.T) {
	_, p := newTestPipeline()
	p.Handle(imu.Acceleration{X: -1})
	p.Handle(imu.Orientation{Yaw: 0})

	snap, _ := p.store.Snapshot()
	b, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"timestamp", "facing", "location", "surface", "accel", "gyro", "yaw", "calibrated", "reference_yaw"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing %q in %s", k, b)
		}
	}
	if m["timestamp"] != "14:05:09" {
		t.Fatalf("timestamp=%v", m["timestamp"])
	}
	if m["gyro"] != nil {
		t.Fatalf("gyro=%v want null", m["gyro"])
	}
}

func TestPipeline_FallbackBeforeAccel(t *testing.T) {
	st, p := newTestPipeline()
	p.Handle(imu.Orientation{Roll: 2, Pitch: 3, Yaw: 40})

	snap, _ := st.Snapshot()
	if snap.Surface != "Floor" {
		t.Fatalf("surface=%q want=Floor", snap.Surface)
	}
	if snap.Location != orientation.CalibratingLabel {
		t.Fatalf("location=%q want=%q", snap.Location, orientation.CalibratingLabel)
	}

	p.Handle(imu.Orientation{Roll: 90, Pitch: 0, Yaw: 40})
	snap, _ = st.Snapshot()
	if snap.Surface != "Wall" || snap.Location != "Wall A" {
		t.Fatalf("surface=%q location=%q", snap.Surface, snap.Location)
	}
}

func TestPipeline_AccelPolicyOverridesPose(t *testing.T) {
	st, p := newTestPipeline()
	p.Handle(imu.Acceleration{Z: 1})
	// Pose alone would say Floor.
	p.Handle(imu.Orientation{})
	snap, _ := st.Snapshot()
	if snap.Surface != "Ceiling" {
		t.Fatalf("surface=%q want=Ceiling", snap.Surface)
	}
	if snap.Calibrated {
		t.Fatalf("ceiling must not calibrate")
	}
}

func TestPipeline_CalibrationIdempotent(t *testing.T) {
	_, p := newTestPipeline()
	p.Handle(imu.Acceleration{X: -1})
	p.Handle(imu.Orientation{Yaw: 30})
	p.Handle(imu.Acceleration{Y: 1})
	p.Handle(imu.Orientation{Yaw: 120})

	c := p.Calibration()
	if !c.Calibrated || c.ReferenceYaw != 30 || c.ReferenceSurface != orientation.LeftWall {
		t.Fatalf("calibration=%+v", c)
	}
}

func TestPipeline_EndToEndWallSectors(t *testing.T) {
	st, p := newTestPipeline()

	frames := stream(
		imu.AccelerationFrame(imu.Acceleration{X: -1}),
		imu.EncodeFrame(imu.TypeOrientation, [4]int16{0, 0, 0, 0}),
	)
	if err := p.Run(context.Background(), imu.NewFrameReader(frames)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap, ok := st.Snapshot()
	if !ok {
		t.Fatalf("no snapshot")
	}
	if snap.Location != "Wall A" || snap.Surface != "Left Wall" {
		t.Fatalf("location=%q surface=%q", snap.Location, snap.Surface)
	}

	frames = stream(imu.OrientationFrame(imu.Orientation{Yaw: 95}))
	if err := p.Run(context.Background(), imu.NewFrameReader(frames)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap, _ = st.Snapshot()
	if snap.Location != "Wall B" {
		t.Fatalf("location=%q want=Wall B", snap.Location)
	}
	if snap.ReferenceYaw == nil || *snap.ReferenceYaw != 0 {
		t.Fatalf("reference_yaw=%v", snap.ReferenceYaw)
	}
	if math.Abs(*snap.Yaw-95) > 0.01 {
		t.Fatalf("yaw=%v", *snap.Yaw)
	}
}

func TestPipeline_RunSkipsCorruptFrames(t *testing.T) {
	st, p := newTestPipeline()
	bad := imu.OrientationFrame(imu.Orientation{Yaw: 10})
	bad[10]++
	unknown := imu.EncodeFrame(0x54, [4]int16{1, 2, 3, 4})
	good := imu.OrientationFrame(imu.Orientation{Yaw: 20})

	if err := p.Run(context.Background(), imu.NewFrameReader(stream(bad, unknown, good))); err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap, _ := st.Snapshot()
	if math.Abs(*snap.Yaw-20) > 0.01 {
		t.Fatalf("yaw=%v want=20", *snap.Yaw)
	}
}

type idleReader struct{}

func (idleReader) Read([]byte) (int, error) { return 0, nil }

func TestPipeline_RunStopsOnCancel(t *testing.T) {
	_, p := newTestPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, imu.NewPortReader(idleReader{})) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

type failingReader struct{}

var errUnplugged = errors.New("unplugged")

func (failingReader) Read([]byte) (int, error) { return 0, errUnplugged }

func TestPipeline_RunReturnsTransportError(t *testing.T) {
	_, p := newTestPipeline()
	err := p.Run(context.Background(), imu.NewPortReader(failingReader{}))
	if !errors.Is(err, errUnplugged) {
		t.Fatalf("err=%v want %v", err, errUnplugged)
	}
}

type noiseReader struct{}

func (noiseReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0x00
	}
	return len(p), nil
}

func TestPipeline_RunStopsOnCancelWithNoisyLine(t *testing.T) {
	_, p := newTestPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, imu.NewPortReader(noiseReader{})) }()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop while the line carried only noise")
	}
}

func attitudeAt(k int) Attitude {
	v := float64(k)
	s := orientation.Floor
	if k%2 == 1 {
		s = orientation.LeftWall
	}
	return Attitude{Orientation: imu.Orientation{Roll: v, Pitch: v, Yaw: v}, Surface: s}
}

func consistent(s Snapshot) bool {
	if s.Roll == nil || s.Pitch == nil || s.Yaw == nil {
		return false
	}
	y := *s.Yaw
	onWall := int(y)%2 == 1
	return *s.Roll == y && *s.Pitch == y &&
		s.Facing == orientation.Facing(y) &&
		s.Location == s.Surface &&
		onWall == (s.Surface == orientation.LeftWall.String())
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	st := NewStore()
	const n = 2000

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 16)
	report := func(msg string) {
		select {
		case errs <- msg:
		default:
		}
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if snap, ok := st.Snapshot(); ok && !consistent(snap) {
					report("torn Snapshot")
				}
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				id, ch := st.Subscribe(4)
				for j := 0; j < 3; j++ {
					select {
					case snap := <-ch:
						if !consistent(snap) {
							report("torn pushed snapshot")
						}
					case <-time.After(time.Millisecond):
					}
				}
				st.Unsubscribe(id)
			}
		}()
	}

	for k := 0; k < n; k++ {
		st.Update(attitudeAt(k))
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatalf("%s", msg)
	default:
	}
}

func TestStore_LateSubscriberSeesEachSnapshotOnce(t *testing.T) {
	st := NewStore()
	const n = 500

	type result struct {
		yaws []float64
	}
	results := make(chan result, 1)
	started := make(chan struct{})
	go func() {
		<-started
		id, ch := st.Subscribe(n + 1)
		var r result
		timeout := time.After(2 * time.Second)
		for len(r.yaws) == 0 || r.yaws[len(r.yaws)-1] < n-1 {
			select {
			case snap := <-ch:
				r.yaws = append(r.yaws, *snap.Yaw)
			case <-timeout:
				st.Unsubscribe(id)
				results <- r
				return
			}
		}
		st.Unsubscribe(id)
		results <- r
	}()

	for k := 0; k < n; k++ {
		if k == n/2 {
			close(started)
		}
		st.Update(attitudeAt(k))
	}

	r := <-results
	if len(r.yaws) == 0 || r.yaws[len(r.yaws)-1] != n-1 {
		t.Fatalf("last yaw missing: %v", r.yaws)
	}
	for i := 1; i < len(r.yaws); i++ {
		if r.yaws[i] <= r.yaws[i-1] {
			t.Fatalf("yaw %v after %v: snapshot repeated or out of order", r.yaws[i], r.yaws[i-1])
		}
	}
}
