package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Permission mirrors the platform's notification permission.
type Permission int

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "default"
}

// ParsePermission parses "default", "granted" or "denied".
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PermissionDefault, nil
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	}
	return PermissionDefault, fmt.Errorf("unknown notification permission %q", s)
}

// Notification is an OS-level notification. Notifications sharing a Tag
// replace each other instead of stacking.
type Notification struct {
	Title string
	Body  string
	Tag   string
	Icon  string
}

// Desktop raises OS notifications behind a permission.
type Desktop interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(ctx context.Context, n Notification) error
}

// ConsentFunc asks the user whether desktop notifications may be shown.
type ConsentFunc func(ctx context.Context) (bool, error)

// ExecDesktop shows notifications with notify-send. The tag is passed as the
// synchronous hint, which notification daemons use to replace the previous
// notification with the same tag.
type ExecDesktop struct {
	appName string
	command string
	consent ConsentFunc
	run     func(ctx context.Context, name string, args ...string) error

	mu   sync.Mutex
	perm Permission
}

// NewExecDesktop creates a desktop notifier starting at perm. Without a
// notify-send binary the permission is Denied and never changes.
func NewExecDesktop(appName string, perm Permission, consent ConsentFunc) *ExecDesktop {
	d := &ExecDesktop{
		appName: appName,
		command: "notify-send",
		consent: consent,
		run:     runCommand,
		perm:    perm,
	}
	if _, err := exec.LookPath(d.command); err != nil {
		d.perm = PermissionDenied
	}
	return d
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d *ExecDesktop) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.perm
}

// RequestPermission asks for consent while the permission is Default. A
// decision, either way, is final.
func (d *ExecDesktop) RequestPermission(ctx context.Context) (Permission, error) {
	d.mu.Lock()
	perm := d.perm
	d.mu.Unlock()
	if perm != PermissionDefault {
		return perm, nil
	}
	if d.consent == nil {
		return PermissionDefault, errors.New("no way to ask for notification consent")
	}

	ok, err := d.consent(ctx)
	if err != nil {
		return PermissionDefault, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.perm == PermissionDefault {
		if ok {
			d.perm = PermissionGranted
		} else {
			d.perm = PermissionDenied
		}
	}
	return d.perm, nil
}

func (d *ExecDesktop) Show(ctx context.Context, n Notification) error {
	if d.Permission() != PermissionGranted {
		return errors.New("notification permission not granted")
	}
	return d.run(ctx, d.command, notifySendArgs(d.appName, n)...)
}

func notifySendArgs(appName string, n Notification) []string {
	args := []string{"--app-name=" + appName}
	if n.Icon != "" {
		args = append(args, "--icon="+n.Icon)
	}
	if n.Tag != "" {
		args = append(args, "--hint=string:x-canonical-private-synchronous:"+n.Tag)
	}
	return append(args, n.Title, n.Body)
}
