package module_test

import (
	"context"
	"errors"
	"image"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/neurolens/internal/adapters/capture"
	"github.com/okian/neurolens/internal/domain/feedback"
	"github.com/okian/neurolens/internal/domain/model"
	"github.com/okian/neurolens/internal/session/module"
	"github.com/okian/neurolens/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

const testTick = 5 * time.Millisecond

// fakeLink is a connected telemetry link whose replies are scripted by
// the test.
type fakeLink struct {
	mu      sync.Mutex
	sent    []model.Outbound
	ready   chan struct{}
	done    chan struct{}
	inbound chan feedback.Feedback
	err     error
	once    sync.Once
	ended   sync.Once
	closed  bool
	// onCommand runs for every control message sent.
	onCommand func(l *fakeLink, cmd string)
}

func newFakeLink() *fakeLink {
	l := &fakeLink{
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		inbound: make(chan feedback.Feedback, 64),
	}
	close(l.ready)
	return l
}

func failedLink(err error) *fakeLink {
	l := &fakeLink{
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		inbound: make(chan feedback.Feedback),
		err:     err,
	}
	l.end()
	return l
}

// end closes done at most once.
func (l *fakeLink) end() {
	l.ended.Do(func() { close(l.done) })
}

// drop loses the connection the way a remote hangup does: the feedback
// stream closes and Done fires without the module calling Close.
func (l *fakeLink) drop(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
	close(l.inbound)
	l.end()
}

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.closed && l.err == nil
}

func (l *fakeLink) Ready() <-chan struct{}            { return l.ready }
func (l *fakeLink) Done() <-chan struct{}             { return l.done }
func (l *fakeLink) Inbound() <-chan feedback.Feedback { return l.inbound }

func (l *fakeLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *fakeLink) Send(msg model.Outbound) bool {
	l.mu.Lock()
	l.sent = append(l.sent, msg)
	hook := l.onCommand
	l.mu.Unlock()
	if msg.Command != "" && hook != nil {
		hook(l, msg.Command)
	}
	return true
}

func (l *fakeLink) Close() error {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.mu.Unlock()
		l.end()
	})
	return nil
}

func (l *fakeLink) commands() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, m := range l.sent {
		if m.Command != "" {
			out = append(out, m.Command)
		}
	}
	return out
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func dialerFor(l *fakeLink) module.Dialer {
	return module.DialFunc(func(context.Context, model.Task) module.Link { return l })
}

type fakeCamera struct {
	mu     sync.Mutex
	closed bool
}

func (c *fakeCamera) Frame(context.Context) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 8, 8)), nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeMic struct {
	fakeCamera
}

func (m *fakeMic) Read(ctx context.Context, buf []float32) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Millisecond):
	}
	for i := range buf {
		buf[i] = 0.1
	}
	return nil
}

type fakeDevices struct {
	camera *fakeCamera
	mic    *fakeMic
	err    error
	opened int
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{camera: &fakeCamera{}, mic: &fakeMic{}}
}

func (d *fakeDevices) OpenCamera(context.Context) (capture.VideoSource, error) {
	d.opened++
	if d.err != nil {
		return nil, d.err
	}
	return d.camera, nil
}

func (d *fakeDevices) OpenMicrophone(context.Context, int) (capture.AudioSource, error) {
	d.opened++
	if d.err != nil {
		return nil, d.err
	}
	return d.mic, nil
}

// recorder observes a module and runs hooks on the module goroutine.
type recorder struct {
	mu          sync.Mutex
	states      []model.ModuleState
	lastErr     error
	ticks       []int
	feedback    int
	onRecording func()
	onFeedback  func(n int)
}

func (r *recorder) ModuleState(_ model.Task, state model.ModuleState, err error) {
	r.mu.Lock()
	r.states = append(r.states, state)
	if err != nil {
		r.lastErr = err
	}
	hook := r.onRecording
	r.mu.Unlock()
	if state == model.StateRecording && hook != nil {
		hook()
	}
}

func (r *recorder) Countdown(_ model.Task, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, remaining)
}

func (r *recorder) Feedback(model.Task, feedback.Feedback) {
	r.mu.Lock()
	r.feedback++
	n := r.feedback
	hook := r.onFeedback
	r.mu.Unlock()
	if hook != nil {
		hook(n)
	}
}

func started() module.Controls {
	start := make(chan struct{})
	close(start)
	return module.Controls{Start: start}
}

func TestControllerLifecycle(t *testing.T) {
	convey.Convey("Given an eye contact module on a connected link", t, func() {
		link := newFakeLink()
		devices := newFakeDevices()
		ctrl := module.New[module.EyeContactState](module.EyeContact{}, devices, dialerFor(link), module.WithTick(testTick))

		convey.Convey("When no feedback ever arrives", func() {
			obs := &recorder{}
			res, err := ctrl.Run(context.Background(), started(), obs)

			convey.Convey("Then the countdown should still finish with a result", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Task, convey.ShouldEqual, model.TaskEyeContact)
				convey.So(res.Score, convey.ShouldEqual, model.ScoreTypical)
				convey.So(res.RawMetrics[model.MetricTotalFrames], convey.ShouldEqual, 0)
				convey.So(obs.states, convey.ShouldResemble, []model.ModuleState{
					model.StateArming, model.StateArmed, model.StateRecording, model.StateFinished,
				})
				convey.So(obs.ticks[0], convey.ShouldEqual, 60)
				convey.So(obs.ticks[len(obs.ticks)-1], convey.ShouldEqual, 0)
			})

			convey.Convey("Then the camera and link should be released", func() {
				convey.So(devices.camera.isClosed(), convey.ShouldBeTrue)
				convey.So(link.isClosed(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When feedback arrives during recording", func() {
			obs := &recorder{onRecording: func() {
				link.inbound <- feedback.EyeContact{FaceDetected: true, CurrentSide: feedback.SideSocial}
				link.inbound <- feedback.EyeContact{FaceDetected: true, CurrentSide: feedback.SideGeometric}
				link.inbound <- feedback.EyeContact{CurrentSide: feedback.SideNone}
			}}
			res, err := ctrl.Run(context.Background(), started(), obs)

			convey.Convey("Then the frame counters should reflect it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.RawMetrics[model.MetricTotalFrames], convey.ShouldEqual, 3)
				convey.So(res.RawMetrics[model.MetricFramesFaceDetected], convey.ShouldEqual, 2)
				convey.So(res.RawMetrics[model.MetricFramesSocialSide], convey.ShouldEqual, 1)
				convey.So(res.RawMetrics[model.MetricFramesGeometricSide], convey.ShouldEqual, 1)
				convey.So(obs.feedback, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the context is cancelled while armed", func() {
			ctx, cancel := context.WithCancel(context.Background())
			obs := &recorder{}
			done := make(chan error, 1)
			go func() {
				_, err := ctrl.Run(ctx, module.Controls{}, obs)
				done <- err
			}()
			time.Sleep(10 * time.Millisecond)
			cancel()
			err := <-done

			convey.Convey("Then Run should return the context error and release everything", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				convey.So(devices.camera.isClosed(), convey.ShouldBeTrue)
				convey.So(link.isClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a gestures module whose link drops while recording", t, func() {
		link := newFakeLink()
		ctrl := module.New[module.GesturesState](module.Gestures{}, newFakeDevices(), dialerFor(link), module.WithTick(time.Millisecond))
		obs := &recorder{onRecording: func() {
			link.inbound <- feedback.Gestures{HandsDetected: true}
			link.drop(errors.New("connection reset"))
		}}

		res, err := ctrl.Run(context.Background(), started(), obs)

		convey.Convey("Then it should finish on the countdown with the last feedback", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.HandsDetected, convey.ShouldBeTrue)
			convey.So(res.Score, convey.ShouldEqual, model.ScoreTypical)
			convey.So(obs.feedback, convey.ShouldEqual, 1)
			convey.So(obs.ticks[len(obs.ticks)-1], convey.ShouldEqual, 0)
			convey.So(obs.states[len(obs.states)-1], convey.ShouldEqual, model.StateFinished)
			convey.So(link.isClosed(), convey.ShouldBeTrue)
		})
	})
}

func TestControllerEarlyComplete(t *testing.T) {
	convey.Convey("Given a gestures module with a slow countdown", t, func() {
		link := newFakeLink()
		complete := make(chan struct{})
		start := make(chan struct{})
		close(start)
		ctrl := module.New[module.GesturesState](module.Gestures{}, newFakeDevices(), dialerFor(link), module.WithTick(time.Hour))

		obs := &recorder{
			onRecording: func() {
				link.inbound <- feedback.Gestures{HandsDetected: false}
				link.inbound <- feedback.Gestures{HandsDetected: true}
			},
			onFeedback: func(n int) {
				if n == 2 {
					close(complete)
				}
			},
		}

		convey.Convey("When the caregiver completes early", func() {
			res, err := ctrl.Run(context.Background(), module.Controls{Start: start, Complete: complete}, obs)

			convey.Convey("Then the latest feedback should be scored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.HandsDetected, convey.ShouldBeTrue)
				convey.So(res.PointingObserved, convey.ShouldBeTrue)
				convey.So(res.Score, convey.ShouldEqual, model.ScoreTypical)
			})
		})
	})
}

func TestControllerFailures(t *testing.T) {
	convey.Convey("Given a module whose devices cannot be acquired", t, func() {
		devices := newFakeDevices()
		devices.err = errors.New("permission denied")
		link := newFakeLink()
		ctrl := module.New[module.RepetitiveState](module.Repetitive{}, devices, dialerFor(link), module.WithTick(testTick))
		obs := &recorder{}

		_, err := ctrl.Run(context.Background(), started(), obs)

		convey.Convey("Then it should fail visibly without dialing", func() {
			convey.So(errors.Is(err, module.ErrDeviceAcquire), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "permission denied")
			convey.So(obs.states[len(obs.states)-1], convey.ShouldEqual, model.StateFailed)
			convey.So(link.isClosed(), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given a module whose link cannot connect", t, func() {
		devices := newFakeDevices()
		link := failedLink(errors.New("connection refused"))
		ctrl := module.New[module.GesturesState](module.Gestures{}, devices, dialerFor(link), module.WithTick(testTick))
		obs := &recorder{}

		_, err := ctrl.Run(context.Background(), started(), obs)

		convey.Convey("Then it should fail and release the camera", func() {
			convey.So(errors.Is(err, module.ErrLinkConnect), convey.ShouldBeTrue)
			convey.So(obs.lastErr, convey.ShouldNotBeNil)
			convey.So(obs.states[len(obs.states)-1], convey.ShouldEqual, model.StateFailed)
			convey.So(devices.camera.isClosed(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a name response module without a child name", t, func() {
		devices := newFakeDevices()
		ctrl := module.New[module.NameResponseState](module.NameResponse{}, devices, dialerFor(newFakeLink()))

		_, err := ctrl.Run(context.Background(), started(), nil)

		convey.Convey("Then it should refuse before touching any device", func() {
			convey.So(errors.Is(err, module.ErrChildNameRequired), convey.ShouldBeTrue)
			convey.So(devices.opened, convey.ShouldEqual, 0)
		})
	})
}

func TestNameResponseModule(t *testing.T) {
	convey.Convey("Given a link that reports a head turn after each yaw reset", t, func() {
		link := newFakeLink()
		link.onCommand = func(l *fakeLink, cmd string) {
			if cmd == model.CommandResetYaw {
				l.inbound <- feedback.NameResponse{FaceDetected: true, HeadTurnDetected: true, YawChange: 0.2}
			}
		}

		convey.Convey("When the child's name is recognized in a final transcript", func() {
			transcripts := make(chan module.TranscriptEvent, 2)
			start := make(chan struct{})
			close(start)
			ctrl := module.New[module.NameResponseState](module.NameResponse{
				ChildName:         "Sam",
				SpeechRecognition: true,
			}, newFakeDevices(), dialerFor(link), module.WithTick(testTick))
			obs := &recorder{onRecording: func() {
				transcripts <- module.TranscriptEvent{Text: "come here SAM", Final: true}
			}}

			res, err := ctrl.Run(context.Background(), module.Controls{Start: start, Transcripts: transcripts}, obs)

			convey.Convey("Then the yaw reference should be reset and the turn scored", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(link.commands(), convey.ShouldResemble, []string{model.CommandResetYaw})
				convey.So(res.NameTriggered, convey.ShouldBeTrue)
				convey.So(res.Responded, convey.ShouldBeTrue)
				convey.So(res.Score, convey.ShouldEqual, model.ScoreTypical)
				convey.So(*res.LatencyMS, convey.ShouldEqual, model.FixedResponseLatencyMS)
			})
		})

		convey.Convey("When speech recognition is unavailable", func() {
			ctrl := module.New[module.NameResponseState](module.NameResponse{
				ChildName:     "Sam",
				FallbackDelay: 5 * time.Millisecond,
			}, newFakeDevices(), dialerFor(link), module.WithTick(10*time.Millisecond))

			res, err := ctrl.Run(context.Background(), started(), &recorder{})

			convey.Convey("Then the fallback delay should trigger the cue", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(link.commands(), convey.ShouldResemble, []string{model.CommandResetYaw})
				convey.So(res.NameTriggered, convey.ShouldBeTrue)
				convey.So(res.Responded, convey.ShouldBeTrue)
			})
		})
	})
}

func TestVocalizationModule(t *testing.T) {
	convey.Convey("Given a vocalization module fed running speech shares", t, func() {
		link := newFakeLink()
		devices := newFakeDevices()
		ctrl := module.New[module.VocalizationState](module.Vocalization{}, devices, dialerFor(link), module.WithTick(testTick))
		obs := &recorder{onRecording: func() {
			link.inbound <- feedback.Vocalization{VocalPercentage: 10, TotalChunks: 1}
			link.inbound <- feedback.Vocalization{VocalPercentage: 35, TotalChunks: 2}
		}}

		res, err := ctrl.Run(context.Background(), started(), obs)

		convey.Convey("Then the last share should be scored and the microphone released", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.VocalPercentage, convey.ShouldEqual, 35)
			convey.So(res.ActivityIndex, convey.ShouldAlmostEqual, 0.35)
			convey.So(res.Score, convey.ShouldEqual, model.ScoreMild)
			convey.So(devices.mic.isClosed(), convey.ShouldBeTrue)
		})
	})
}

func TestFallbackResults(t *testing.T) {
	convey.Convey("Given the full module sequence", t, func() {
		modules := module.Sequence(module.Params{ChildName: "Ada"}, newFakeDevices(), dialerFor(newFakeLink()))

		convey.Convey("Then it should follow the session order", func() {
			convey.So(module.Tasks(modules), convey.ShouldResemble, model.Sequence())
		})

		convey.Convey("Then every fallback should be a valid skipped result", func() {
			for _, m := range modules {
				res := m.Fallback()
				convey.So(res.Task, convey.ShouldEqual, m.Task())
				convey.So(res.Skipped, convey.ShouldBeTrue)
				convey.So(res.Validate(), convey.ShouldBeNil)
			}
		})

		convey.Convey("Then skipped scores should match absent feedback", func() {
			convey.So(modules[0].Fallback().Score, convey.ShouldEqual, model.ScoreTypical)
			convey.So(modules[1].Fallback().Score, convey.ShouldEqual, model.ScoreConcern)
			convey.So(modules[2].Fallback().Score, convey.ShouldEqual, model.ScoreConcern)
			convey.So(modules[3].Fallback().Score, convey.ShouldEqual, model.ScoreConcern)
			convey.So(modules[4].Fallback().Score, convey.ShouldEqual, model.ScoreTypical)
		})
	})
}
