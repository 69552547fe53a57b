package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/config"
	"github.com/gkstorejd-max/gkstore-admin/internal/logging"
	"github.com/gkstorejd-max/gkstore-admin/internal/notify"
	"github.com/gkstorejd-max/gkstore-admin/internal/session"
)

// ErrNotSignedIn is returned by commands that need a session when there is none.
var ErrNotSignedIn = errors.New("not signed in, run 'gkadmin login' first")

// Backend is the client stack shared by every command: one cookie jar
// persisted in the state file, the HTTP core and the session provider.
type Backend struct {
	Context  *CommandContext
	Config   *config.Config
	Logger   *slog.Logger
	Storage  *session.FileStorage
	Jar      *client.Jar
	HTTP     *client.HTTPClient
	API      *client.API
	Provider *session.Provider

	closer io.Closer
}

// openBackend loads the configuration and wires the client stack. Logs go to
// the configured file, or to logOut when there is none.
func openBackend(cmd *cobra.Command, logOut io.Writer) (*Backend, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.New(cfg.Log, logOut)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	storage := session.NewFileStorage(cfg.Storage.StateFile)
	jar := client.NewJar()
	if st, err := storage.Load(); err != nil {
		logger.Warn("reading state file", "path", storage.Path(), "error", err)
	} else {
		jar.Load(st.Cookies)
	}
	jar.OnChange(func(cookies []client.StoredCookie) {
		if err := storage.Update(func(st *session.Stored) { st.Cookies = cookies }); err != nil {
			logger.Warn("saving cookies", "error", err)
		}
	})

	httpClient := client.NewHTTPClient(cfg.API.BaseURL, jar, cfg.API.Timeout, logger)
	api := client.NewAPI(httpClient)
	provider := session.NewProvider(api, storage, logger)
	httpClient.OnSessionExpired(provider.Expire)
	provider.OnClear(jar.Clear)

	return &Backend{
		Context:  cc,
		Config:   cfg,
		Logger:   logger,
		Storage:  storage,
		Jar:      jar,
		HTTP:     httpClient,
		API:      api,
		Provider: provider,
		closer:   closer,
	}, nil
}

// Close releases the log file.
func (b *Backend) Close() error {
	return b.closer.Close()
}

// NewRealtime creates an order channel that shares the backend's cookies and
// fetches today's orders as its baseline.
func (b *Backend) NewRealtime() (*client.Realtime, error) {
	rc := b.Config.Realtime
	return client.NewRealtime(client.RealtimeOptions{
		URL:               b.Config.RealtimeURL(),
		Path:              rc.Path,
		Namespace:         rc.Namespace,
		Transports:        rc.Transports,
		ReconnectAttempts: rc.ReconnectAttempts,
		ReconnectDelay:    rc.ReconnectDelay,
		DialTimeout:       rc.DialTimeout,
		Jar:               b.Jar,
		Baseline:          b.API.TodayOrders,
		Logger:            b.Logger,
	})
}

// NewNotifier builds the dispatcher from the notification settings. The bell
// rings on bell when no sound file is configured.
func (b *Backend) NewNotifier(bell io.Writer, consent notify.ConsentFunc) (*notify.Dispatcher, *notify.GestureHub, error) {
	nc := b.Config.Notifications
	perm, err := notify.ParsePermission(nc.Permission)
	if err != nil {
		return nil, nil, err
	}

	var desktop notify.Desktop
	if nc.Desktop {
		desktop = notify.NewExecDesktop("GK Store", perm, consent)
	}

	newAudio := func() (notify.Audio, error) {
		if nc.Sound == "" {
			return notify.NewBellAudio(bell), nil
		}
		a, err := notify.NewCommandAudio(nc.Sound, nc.Player)
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	hub := notify.NewGestureHub()
	d := notify.New(notify.Options{
		Title:          nc.Title,
		Tag:            nc.Tag,
		Icon:           nc.Icon,
		BannerDuration: nc.BannerDuration,
		NewAudio:       newAudio,
		Desktop:        desktop,
		Gestures:       hub,
		Logger:         b.Logger,
	})
	return d, hub, nil
}

// explain turns an unrecoverable session into an actionable message.
func explain(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		return fmt.Errorf("%w, run 'gkadmin login' to sign in again", err)
	}
	return err
}
