// Package notify turns order events into an in-app banner, a sound and an
// OS notification. Sound stays locked until the first user gesture, and OS
// notifications are only raised once permission has been granted.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults for Options.
const (
	DefaultTitle          = "New Order!"
	DefaultTag            = "order-notification"
	DefaultBannerDuration = 5 * time.Second
)

const showTimeout = 5 * time.Second

// Banner is the transient in-app notification. Seq grows with every Notify;
// a cleared banner has Visible false.
type Banner struct {
	Seq     uint64
	Message string
	Visible bool
	At      time.Time
}

// Options configures a Dispatcher.
type Options struct {
	Title          string
	Tag            string
	Icon           string
	BannerDuration time.Duration

	// NewAudio builds the sound on first need. Nil disables sound.
	NewAudio func() (Audio, error)
	Desktop  Desktop
	Gestures GestureSource
	Logger   *slog.Logger
}

// Dispatcher delivers notifications. It is safe for concurrent use.
type Dispatcher struct {
	opts   Options
	logger *slog.Logger

	audioOnce sync.Once
	audio     Audio

	mu       sync.Mutex
	detach   []func()
	unlocked bool
	banner   Banner
	timers   map[uint64]*time.Timer
	updates  chan Banner
	closed   bool
}

// New creates a dispatcher and attaches the unlock listeners.
func New(opts Options) *Dispatcher {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Tag == "" {
		opts.Tag = DefaultTag
	}
	if opts.BannerDuration < 0 {
		opts.BannerDuration = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Dispatcher{
		opts:    opts,
		logger:  opts.Logger.With("component", "notify"),
		timers:  make(map[uint64]*time.Timer),
		updates: make(chan Banner, 1),
	}
	if opts.Gestures != nil {
		for _, kind := range UnlockGestures {
			d.detach = append(d.detach, opts.Gestures.Subscribe(kind, d.onGesture))
		}
	}
	return d
}

// Updates delivers the latest banner state. Intermediate states may be skipped.
func (d *Dispatcher) Updates() <-chan Banner { return d.updates }

// Banner returns the current banner.
func (d *Dispatcher) Banner() Banner {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.banner
}

// SoundEnabled reports whether the unlock handshake succeeded.
func (d *Dispatcher) SoundEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unlocked
}

func (d *Dispatcher) onGesture() {
	d.Unlock(context.Background())
}

// Unlock detaches the gesture listeners and performs the silent
// play-pause-rewind that enables later audible plays. It reports whether
// sound is now enabled.
func (d *Dispatcher) Unlock(ctx context.Context) bool {
	d.mu.Lock()
	detach := d.detach
	d.detach = nil
	d.mu.Unlock()
	for _, fn := range detach {
		fn()
	}

	a := d.loadAudio()
	if a == nil {
		return false
	}
	if err := a.Play(ctx, 0); err != nil {
		d.logger.Warn("audio unlock failed", "error", err)
		return false
	}
	a.Pause()
	a.Rewind()

	d.mu.Lock()
	first := !d.unlocked
	d.unlocked = true
	d.mu.Unlock()
	if first {
		d.logger.Debug("audio unlocked")
	}
	return true
}

// Notify shows msg for the default banner duration.
func (d *Dispatcher) Notify(ctx context.Context, msg string) {
	d.NotifyFor(ctx, msg, d.opts.BannerDuration)
}

// NotifyFor shows msg, plays the sound and raises an OS notification when
// permitted. A zero duration keeps the banner until ClearBanner.
func (d *Dispatcher) NotifyFor(ctx context.Context, msg string, duration time.Duration) {
	seq, ok := d.showBanner(msg)
	if !ok {
		return
	}

	d.playSound(ctx)

	if desk := d.opts.Desktop; desk != nil && desk.Permission() == PermissionGranted {
		sctx, cancel := context.WithTimeout(ctx, showTimeout)
		err := desk.Show(sctx, Notification{
			Title: d.opts.Title,
			Body:  msg,
			Tag:   d.opts.Tag,
			Icon:  d.opts.Icon,
		})
		cancel()
		if err != nil {
			d.logger.Warn("desktop notification failed", "error", err)
		}
	}

	if duration > 0 {
		d.scheduleClear(seq, duration)
	}
}

func (d *Dispatcher) showBanner(msg string) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, false
	}
	d.banner = Banner{Seq: d.banner.Seq + 1, Message: msg, Visible: true, At: time.Now()}
	d.pushLocked()
	return d.banner.Seq, true
}

func (d *Dispatcher) playSound(ctx context.Context) {
	a := d.loadAudio()
	if a == nil {
		return
	}
	a.Rewind()
	if err := a.Play(ctx, 1); err != nil {
		d.logger.Warn("notification sound failed", "error", err)
	}
}

// loadAudio constructs and preloads the sound once.
func (d *Dispatcher) loadAudio() Audio {
	d.audioOnce.Do(func() {
		if d.opts.NewAudio == nil {
			return
		}
		a, err := d.opts.NewAudio()
		if err != nil {
			d.logger.Warn("audio unavailable", "error", err)
			return
		}
		if err := a.Load(); err != nil {
			d.logger.Warn("audio preload failed", "error", err)
		}
		d.audio = a
	})
	return d.audio
}

func (d *Dispatcher) scheduleClear(seq uint64, after time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.timers[seq] = time.AfterFunc(after, func() { d.clear(seq) })
}

// clear hides the banner if it is still the one shown as seq.
func (d *Dispatcher) clear(seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.timers, seq)
	if d.closed || d.banner.Seq != seq || !d.banner.Visible {
		return
	}
	d.banner.Visible = false
	d.pushLocked()
}

// ClearBanner hides the current banner.
func (d *Dispatcher) ClearBanner() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.banner.Visible {
		return
	}
	d.banner.Visible = false
	d.pushLocked()
}

func (d *Dispatcher) pushLocked() {
	select {
	case <-d.updates:
	default:
	}
	d.updates <- d.banner
}

// RequestPermission prompts only while the permission is Default and
// reports whether it ended up Granted.
func (d *Dispatcher) RequestPermission(ctx context.Context) bool {
	desk := d.opts.Desktop
	if desk == nil {
		return false
	}
	if p := desk.Permission(); p != PermissionDefault {
		return p == PermissionGranted
	}
	p, err := desk.RequestPermission(ctx)
	if err != nil {
		d.logger.Warn("notification permission request failed", "error", err)
		return false
	}
	d.logger.Info("notification permission", "permission", p)
	return p == PermissionGranted
}

// Permission returns the current OS notification permission.
func (d *Dispatcher) Permission() Permission {
	if d.opts.Desktop == nil {
		return PermissionDenied
	}
	return d.opts.Desktop.Permission()
}

// Close detaches listeners and cancels pending banner clears.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	detach := d.detach
	d.detach = nil
	for seq, t := range d.timers {
		t.Stop()
		delete(d.timers, seq)
	}
	d.mu.Unlock()
	for _, fn := range detach {
		fn()
	}
}
