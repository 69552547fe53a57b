package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gkstorejd-max/gkstore-admin/internal/client"
	"github.com/gkstorejd-max/gkstore-admin/internal/notify"
	"github.com/gkstorejd-max/gkstore-admin/internal/orders"
	"github.com/gkstorejd-max/gkstore-admin/internal/session"
	"github.com/gkstorejd-max/gkstore-admin/internal/theme"
	"github.com/gkstorejd-max/gkstore-admin/internal/views/banner"
	"github.com/gkstorejd-max/gkstore-admin/internal/views/catalog"
	"github.com/gkstorejd-max/gkstore-admin/internal/views/dashboard"
	"github.com/gkstorejd-max/gkstore-admin/internal/views/debug"
	"github.com/gkstorejd-max/gkstore-admin/internal/views/login"
	"github.com/gkstorejd-max/gkstore-admin/internal/views/status"
)

// Screen identifies the main view.
type Screen int

const (
	ScreenSignIn Screen = iota
	ScreenDashboard
	ScreenProducts
	ScreenCategories
)

var screenPaths = map[Screen]string{
	ScreenSignIn:     "/login",
	ScreenDashboard:  "/admin/dashboard",
	ScreenProducts:   "/admin/products",
	ScreenCategories: "/admin/categories",
}

// Path returns the navigation path recorded for the screen.
func (s Screen) Path() string { return screenPaths[s] }

// ScreenForPath maps a stored path back to an admin screen. The sign-in
// path is not restorable.
func ScreenForPath(path string) (Screen, bool) {
	for s, p := range screenPaths {
		if p == path && s != ScreenSignIn {
			return s, true
		}
	}
	return ScreenSignIn, false
}

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayReport
	OverlayDebug
	OverlayPermission
	OverlayUnauthorized
)

// Sessions is the session provider as seen by the console.
type Sessions interface {
	Subscribe() (<-chan session.Snapshot, func())
	Start(ctx context.Context) session.Snapshot
	Login(ctx context.Context, creds client.Credentials) session.Result
	Logout(ctx context.Context)
	SaveLastPath(path string)
	LastPath() string
}

// Catalog is the part of the API behind the listing screens.
type Catalog interface {
	ListProducts(ctx context.Context, p client.ListParams) (*client.ProductPage, error)
	ListCategories(ctx context.Context, p client.ListParams) (*client.CategoryPage, error)
	DeleteProduct(ctx context.Context, id string) error
	DeleteCategory(ctx context.Context, id string) error
}

// Notifier delivers new-order notifications.
type Notifier interface {
	Notify(ctx context.Context, msg string)
	Updates() <-chan notify.Banner
	RequestPermission(ctx context.Context) bool
	Permission() notify.Permission
	SoundEnabled() bool
}

// Realtime is a live order channel.
type Realtime interface {
	Start(ctx context.Context)
	Events() <-chan client.Event
	Reconnect()
	Close()
}

// GestureEmitter receives every key and mouse press.
type GestureEmitter interface {
	Emit(kind notify.GestureKind)
}

// Options wires the console to its collaborators.
type Options struct {
	Sessions    Sessions
	Catalog     Catalog
	Notifier    Notifier
	NewRealtime func() (Realtime, error)
	Gestures    GestureEmitter
	Feed        *orders.Feed
	Logger      *slog.Logger
	Now         func() time.Time
}

type (
	snapshotMsg session.Snapshot
	bannerMsg   notify.Banner
	soundMsg    bool
	loginMsg    session.Result

	realtimeMsg struct {
		gen int
		ev  client.Event
	}
	realtimeClosedMsg struct{ gen int }

	productsMsg struct {
		page *client.ProductPage
		err  error
	}
	categoriesMsg struct {
		page *client.CategoryPage
		err  error
	}
	deletedMsg struct {
		kind catalog.Kind
		item catalog.Item
		err  error
	}
	permissionMsg struct{ granted bool }
	reportMsg     struct {
		text string
		err  error
	}
)

// Model is the root Bubble Tea model.
type Model struct {
	opts   Options
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	help   help.Model
	width  int
	height int

	screen  Screen
	overlay Overlay

	// Session state.
	snap            session.Snapshot
	snaps           <-chan session.Snapshot
	unsub           func()
	restored        bool
	askedPermission bool

	// Realtime channel; gen discards events from a closed channel.
	rt    Realtime
	rtGen int

	// Sub-views.
	statusBar  status.Model
	dashboard  dashboard.Model
	banner     banner.Model
	login      login.Model
	products   catalog.Model
	categories catalog.Model
	debug      debug.Model
	report     viewport.Model
}

// New creates the root model and subscribes to session snapshots.
func New(opts Options) Model {
	if opts.Feed == nil {
		opts.Feed = orders.NewFeed()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	snaps, unsub := opts.Sessions.Subscribe()

	m := Model{
		opts:       opts,
		logger:     opts.Logger.With("component", "console"),
		ctx:        ctx,
		cancel:     cancel,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		snaps:      snaps,
		unsub:      unsub,
		statusBar:  status.New(),
		dashboard:  dashboard.New(),
		banner:     banner.New(),
		login:      login.New(),
		products:   catalog.New(catalog.Products),
		categories: catalog.New(catalog.Categories),
		debug:      debug.New(),
		report:     viewport.New(80, 20),
	}
	m.statusBar.Permission = opts.Notifier.Permission().String()
	m.statusBar.Sound = opts.Notifier.SoundEnabled()
	return m
}

// Init runs the boot identity check and starts listening for snapshots and
// banner updates.
func (m Model) Init() tea.Cmd {
	sessions, ctx := m.opts.Sessions, m.ctx
	return tea.Batch(
		func() tea.Msg {
			sessions.Start(ctx)
			return nil
		},
		waitSnapshot(m.snaps),
		waitBanner(m.opts.Notifier.Updates()),
		m.login.Init(),
	)
}

// Shutdown releases the subscription and closes the realtime channel.
func (m Model) Shutdown() {
	m.cancel()
	m.unsub()
	if m.rt != nil {
		m.rt.Close()
	}
}

// Screen returns the active screen.
func (m Model) Screen() Screen { return m.screen }

// Overlay returns the active overlay.
func (m Model) Overlay() Overlay { return m.overlay }

func waitSnapshot(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(s)
	}
}

func waitBanner(ch <-chan notify.Banner) tea.Cmd {
	return func() tea.Msg {
		b, ok := <-ch
		if !ok {
			return nil
		}
		return bannerMsg(b)
	}
}

func waitRealtime(gen int, ch <-chan client.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return realtimeClosedMsg{gen: gen}
		}
		return realtimeMsg{gen: gen, ev: ev}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		return m, tea.Batch(m.gesture(notify.GestureKey), cmd)

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		return m, m.gesture(notify.GestureClick)

	case soundMsg:
		m.statusBar.Sound = bool(msg)
		return m, nil

	case snapshotMsg:
		var cmd tea.Cmd
		m, cmd = m.applySnapshot(session.Snapshot(msg))
		return m, tea.Batch(cmd, waitSnapshot(m.snaps))

	case login.SubmitMsg:
		m.login.SetBusy(true)
		sessions, ctx := m.opts.Sessions, m.ctx
		return m, func() tea.Msg { return loginMsg(sessions.Login(ctx, msg.Credentials)) }

	case loginMsg:
		if msg.Success {
			m.login.Reset()
			return m, nil
		}
		m.login.SetError(msg.Message)
		m.debug.Add(debug.KindSession, "login failed: %s", msg.Message)
		return m, nil

	case realtimeMsg:
		if msg.gen != m.rtGen || m.rt == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.applyEvent(msg.ev)
		return m, tea.Batch(cmd, waitRealtime(m.rtGen, m.rt.Events()))

	case realtimeClosedMsg:
		if msg.gen == m.rtGen {
			m.debug.Add(debug.KindRealtime, "event stream closed")
		}
		return m, nil

	case bannerMsg:
		cmd := m.banner.Set(notify.Banner(msg))
		return m, tea.Batch(cmd, waitBanner(m.opts.Notifier.Updates()))

	case banner.FrameMsg:
		var cmd tea.Cmd
		m.banner, cmd = m.banner.Update(msg)
		return m, cmd

	case productsMsg:
		if msg.err != nil {
			m.products.SetError(msg.err)
			m.debug.Add(debug.KindError, "products: %v", msg.err)
			return m, nil
		}
		m.products.SetProducts(msg.page)
		return m, nil

	case categoriesMsg:
		if msg.err != nil {
			m.categories.SetError(msg.err)
			m.debug.Add(debug.KindError, "categories: %v", msg.err)
			return m, nil
		}
		m.categories.SetCategories(msg.page)
		return m, nil

	case deletedMsg:
		return m.applyDeleted(msg)

	case permissionMsg:
		m.statusBar.Permission = m.opts.Notifier.Permission().String()
		m.debug.Add(debug.KindNotify, "desktop notifications granted=%t", msg.granted)
		return m, nil

	case reportMsg:
		if msg.err != nil {
			m.debug.Add(debug.KindError, "report: %v", msg.err)
			m.report.SetContent(theme.StyleError.Render(msg.err.Error()))
		} else {
			m.report.SetContent(msg.text)
		}
		m.report.GotoTop()
		m.overlay = OverlayReport
		return m, nil
	}

	if m.screen == ScreenSignIn {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	m.statusBar.Width = w
	m.banner.Width = w
	m.login.Width = w
	m.help.Width = w
	m.dashboard.Width = w
	m.dashboard.Height = h
	m.products.Width, m.products.Height = w, h
	m.categories.Width, m.categories.Height = w, h
	m.report.Width = max(w-6, 20)
	m.report.Height = max(h-8, 5)
}

// gesture reports a user interaction. Emitting may unlock audio, so it runs
// off the update loop.
func (m Model) gesture(kind notify.GestureKind) tea.Cmd {
	if m.opts.Gestures == nil {
		return nil
	}
	g, n := m.opts.Gestures, m.opts.Notifier
	return func() tea.Msg {
		g.Emit(kind)
		return soundMsg(n.SoundEnabled())
	}
}

func (m Model) applySnapshot(s session.Snapshot) (Model, tea.Cmd) {
	m.snap = s
	m.debug.Add(debug.KindSession, "state=%s reason=%q", s.State, s.Reason)

	switch {
	case s.Authenticated():
		m.statusBar.User = s.User.DisplayName()
		if !s.User.IsAdmin() {
			m.overlay = OverlayUnauthorized
			m.stopRealtime()
			return m, nil
		}
		if m.overlay == OverlayUnauthorized {
			m.overlay = OverlayNone
		}

		var cmds []tea.Cmd
		if m.rt == nil {
			cmds = append(cmds, m.startRealtime())
		}
		if m.screen == ScreenSignIn {
			m.login.Reset()
			target := ScreenDashboard
			if !m.restored {
				if restored, ok := ScreenForPath(m.opts.Sessions.LastPath()); ok {
					target = restored
				}
			}
			cmds = append(cmds, m.navigate(target))
		}
		m.restored = true
		if !m.askedPermission && m.opts.Notifier.Permission() == notify.PermissionDefault {
			m.askedPermission = true
			if m.overlay == OverlayNone {
				m.overlay = OverlayPermission
			}
		}
		return m, tea.Batch(cmds...)

	case s.State == session.StateAnonymous:
		m.statusBar.User = ""
		m.stopRealtime()
		m.opts.Feed.Replace(nil)
		m.dashboard = dashboard.New()
		m.products = catalog.New(catalog.Products)
		m.categories = catalog.New(catalog.Categories)
		m.resize(m.width, m.height)
		m.overlay = OverlayNone
		if m.screen != ScreenSignIn {
			m.screen = ScreenSignIn
			m.debug.Add(debug.KindNav, "-> %s", ScreenSignIn.Path())
		}
		switch {
		case s.SignIn && s.Reason == session.ReasonExpired:
			m.login.SetError("Your session has expired. Please sign in again.")
		case s.Reason == session.ReasonLoggedOut:
			m.login.Reset()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) startRealtime() tea.Cmd {
	if m.opts.NewRealtime == nil {
		return nil
	}
	rt, err := m.opts.NewRealtime()
	if err != nil {
		m.logger.Error("creating realtime channel", "error", err)
		m.debug.Add(debug.KindError, "realtime: %v", err)
		return nil
	}
	m.rtGen++
	m.rt = rt
	m.statusBar.Live = true
	m.statusBar.Conn = client.StateConnecting
	m.dashboard.Loading = true
	rt.Start(m.ctx)
	m.debug.Add(debug.KindRealtime, "channel started")
	return waitRealtime(m.rtGen, rt.Events())
}

// stopRealtime tears the channel down before the state change returns.
func (m *Model) stopRealtime() {
	if m.rt == nil {
		return
	}
	m.rt.Close()
	m.rt = nil
	m.rtGen++
	m.statusBar.Live = false
	m.statusBar.Conn = client.StateDisconnected
	m.debug.Add(debug.KindRealtime, "channel closed")
}

func (m Model) applyEvent(ev client.Event) (Model, tea.Cmd) {
	m.statusBar.Conn = ev.State
	switch ev.Kind {
	case client.EventConnected:
		m.debug.Add(debug.KindRealtime, "connected")
	case client.EventDisconnected:
		m.debug.Add(debug.KindRealtime, "disconnected: %s", ev.Reason)
	case client.EventReconnecting:
		m.statusBar.Attempt = ev.Attempt
		m.debug.Add(debug.KindRealtime, "reconnecting, attempt %d", ev.Attempt)
	case client.EventReconnected:
		m.statusBar.Attempt = 0
		m.debug.Add(debug.KindRealtime, "reconnected after %d attempts", ev.Attempt)
	case client.EventBaseline:
		m.opts.Feed.Replace(ev.Orders)
		m.syncFeed()
		m.debug.Add(debug.KindRealtime, "baseline: %d orders (resync=%t)", len(ev.Orders), ev.Resync)
	case client.EventOrder:
		m.opts.Feed.Prepend(ev.Order)
		m.syncFeed()
		text := fmt.Sprintf("New order from %s · %s", ev.Order.CustomerName(), orders.Rupees(ev.Order.TotalAmount))
		m.debug.Add(debug.KindNotify, "%s", text)
		n, ctx := m.opts.Notifier, m.ctx
		return m, func() tea.Msg {
			n.Notify(ctx, text)
			return nil
		}
	case client.EventError:
		var ce *client.ConnectError
		if errors.As(ev.Err, &ce) {
			m.debug.Add(debug.KindError, "connect refused: %s", ce.Message)
		} else {
			m.debug.Add(debug.KindError, "realtime: %v", ev.Err)
		}
	}
	return m, nil
}

func (m *Model) syncFeed() {
	m.dashboard.SetOrders(m.opts.Feed.Orders())
	m.statusBar.SetSummary(m.opts.Feed.Summary())
}

// navigate switches screens, records the path and loads listings on first
// visit.
func (m *Model) navigate(s Screen) tea.Cmd {
	if s == ScreenSignIn {
		m.screen = s
		return nil
	}
	m.screen = s
	m.opts.Sessions.SaveLastPath(s.Path())
	m.debug.Add(debug.KindNav, "-> %s", s.Path())

	switch s {
	case ScreenProducts:
		if len(m.products.Items()) == 0 && !m.products.Loading() {
			return m.fetchProducts()
		}
	case ScreenCategories:
		if len(m.categories.Items()) == 0 && !m.categories.Loading() {
			return m.fetchCategories()
		}
	}
	return nil
}

func (m *Model) fetchProducts() tea.Cmd {
	m.products.SetLoading()
	api, ctx, params := m.opts.Catalog, m.ctx, m.products.Params()
	return func() tea.Msg {
		page, err := api.ListProducts(ctx, params)
		return productsMsg{page: page, err: err}
	}
}

func (m *Model) fetchCategories() tea.Cmd {
	m.categories.SetLoading()
	api, ctx, params := m.opts.Catalog, m.ctx, m.categories.Params()
	return func() tea.Msg {
		page, err := api.ListCategories(ctx, params)
		return categoriesMsg{page: page, err: err}
	}
}

func (m Model) deleteCmd(kind catalog.Kind, it catalog.Item) tea.Cmd {
	api, ctx := m.opts.Catalog, m.ctx
	return func() tea.Msg {
		var err error
		if kind == catalog.Categories {
			err = api.DeleteCategory(ctx, it.ID)
		} else {
			err = api.DeleteProduct(ctx, it.ID)
		}
		return deletedMsg{kind: kind, item: it, err: err}
	}
}

func (m Model) applyDeleted(msg deletedMsg) (Model, tea.Cmd) {
	view := &m.products
	refetch := m.fetchProducts
	if msg.kind == catalog.Categories {
		view = &m.categories
		refetch = m.fetchCategories
	}
	view.CancelDelete()
	if msg.err != nil {
		view.SetError(msg.err)
		m.debug.Add(debug.KindError, "delete %s: %v", msg.item.Name, msg.err)
		return m, nil
	}
	view.SetNotice(fmt.Sprintf("Deleted %s", msg.item.Name))
	m.debug.Add(debug.KindNav, "deleted %s %s", msg.kind, msg.item.ID)
	cmd := refetch()
	return m, cmd
}

func (m Model) reportCmd() tea.Cmd {
	list, day, width := m.opts.Feed.Orders(), m.opts.Now(), m.report.Width
	return func() tea.Msg {
		text, err := orders.Render(list, day, width)
		return reportMsg{text: text, err: err}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	if m.screen == ScreenSignIn && m.overlay == OverlayNone {
		if m.snap.State != session.StateAnonymous {
			return m, nil
		}
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	if view := m.activeCatalog(); view != nil {
		if _, ok := view.Confirming(); ok {
			return m.handleConfirmKey(msg)
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Tab):
		next := m.screen + 1
		if next > ScreenCategories {
			next = ScreenDashboard
		}
		cmd := m.navigate(next)
		return m, cmd

	case key.Matches(msg, m.keys.Dashboard):
		cmd := m.navigate(ScreenDashboard)
		return m, cmd

	case key.Matches(msg, m.keys.Products):
		cmd := m.navigate(ScreenProducts)
		return m, cmd

	case key.Matches(msg, m.keys.Categories):
		cmd := m.navigate(ScreenCategories)
		return m, cmd

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, nil

	case key.Matches(msg, m.keys.Reconnect):
		if m.rt != nil {
			m.rt.Reconnect()
			m.debug.Add(debug.KindRealtime, "manual reconnect")
		}
		return m, nil

	case key.Matches(msg, m.keys.Notify):
		if m.opts.Notifier.Permission() == notify.PermissionDefault {
			m.overlay = OverlayPermission
		} else {
			m.debug.Add(debug.KindNotify, "desktop notifications %s", m.opts.Notifier.Permission())
		}
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		sessions, ctx := m.opts.Sessions, m.ctx
		return m, func() tea.Msg {
			sessions.Logout(ctx)
			return nil
		}
	}

	switch m.screen {
	case ScreenDashboard:
		return m.handleDashboardKey(msg)
	case ScreenProducts, ScreenCategories:
		return m.handleCatalogKey(msg)
	}
	return m, nil
}

func (m Model) quit() (Model, tea.Cmd) {
	m.cancel()
	if m.rt != nil {
		m.rt.Close()
		m.rt = nil
	}
	return m, tea.Quit
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.overlay {
	case OverlayUnauthorized:
		switch {
		case key.Matches(msg, m.keys.Logout):
			sessions, ctx := m.opts.Sessions, m.ctx
			return m, func() tea.Msg {
				sessions.Logout(ctx)
				return nil
			}
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		}
		return m, nil

	case OverlayPermission:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.overlay = OverlayNone
			n, ctx := m.opts.Notifier, m.ctx
			return m, func() tea.Msg { return permissionMsg{granted: n.RequestPermission(ctx)} }
		case key.Matches(msg, m.keys.Cancel):
			m.overlay = OverlayNone
		}
		return m, nil

	case OverlayReport:
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Report) || key.Matches(msg, m.keys.Quit) {
			m.overlay = OverlayNone
			return m, nil
		}
		var cmd tea.Cmd
		m.report, cmd = m.report.Update(msg)
		return m, cmd

	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug), key.Matches(msg, m.keys.Quit):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.dashboard.Next()
	case key.Matches(msg, m.keys.Up):
		m.dashboard.Prev()
	case key.Matches(msg, m.keys.Report):
		return m, m.reportCmd()
	}
	return m, nil
}

func (m *Model) activeCatalog() *catalog.Model {
	switch m.screen {
	case ScreenProducts:
		return &m.products
	case ScreenCategories:
		return &m.categories
	}
	return nil
}

func (m *Model) refetch() tea.Cmd {
	if m.screen == ScreenCategories {
		return m.fetchCategories()
	}
	return m.fetchProducts()
}

func (m Model) handleCatalogKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	view := m.activeCatalog()
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.NextPage):
		if view.NextPage() {
			cmd = m.refetch()
		}
		return m, cmd
	case key.Matches(msg, m.keys.PrevPage):
		if view.PrevPage() {
			cmd = m.refetch()
		}
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		cmd = m.refetch()
		return m, cmd
	case key.Matches(msg, m.keys.Delete):
		view.AskDelete()
		return m, nil
	}

	*view, cmd = view.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	view := m.activeCatalog()
	it, _ := view.Confirming()
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m, m.deleteCmd(view.Kind, it)
	case key.Matches(msg, m.keys.Cancel):
		view.CancelDelete()
	}
	return m, nil
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.screen == ScreenSignIn && m.overlay == OverlayNone {
		if m.snap.State != session.StateAnonymous {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
				theme.StyleDimmed.Render("Checking session..."))
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.login.View())
	}

	sections := []string{m.statusBar.View()}
	if b := m.banner.View(); b != "" {
		sections = append(sections, b)
	}
	sections = append(sections, m.tabs(), m.body())
	sections = append(sections, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) tabs() string {
	names := []struct {
		s    Screen
		name string
	}{
		{ScreenDashboard, "1 Orders"},
		{ScreenProducts, "2 Products"},
		{ScreenCategories, "3 Categories"},
	}
	var parts []string
	for _, n := range names {
		if n.s == m.screen {
			parts = append(parts, theme.StyleTitle.Render("["+n.name+"]"))
		} else {
			parts = append(parts, theme.StyleDimmed.Render(" "+n.name+" "))
		}
	}
	return " " + lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) body() string {
	switch m.overlay {
	case OverlayDebug:
		return m.debug.View(m.width, m.height-6)
	case OverlayReport:
		return theme.Panel(max(m.width-4, 20)).Padding(0, 1).Render(m.report.View())
	case OverlayPermission:
		return theme.Panel(min(max(m.width-4, 20), 64)).Render(lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleHeader.Render("Desktop notifications"),
			"",
			"Show a desktop notification when a new order arrives?",
			"",
			theme.StyleDimmed.Render("y:allow  n:not now"),
		))
	case OverlayUnauthorized:
		who := "This account"
		if m.snap.User != nil {
			who = fmt.Sprintf("%s (%s)", m.snap.User.DisplayName(), m.snap.User.Role)
		}
		return theme.Panel(min(max(m.width-4, 20), 64)).Render(lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleError.Render("Unauthorized"),
			"",
			who+" is not allowed to use the admin console.",
			"",
			theme.StyleDimmed.Render("L:log out  q:quit"),
		))
	}

	switch m.screen {
	case ScreenProducts:
		return m.products.View()
	case ScreenCategories:
		return m.categories.View()
	default:
		return m.dashboard.View()
	}
}

func (m Model) footer() string {
	if m.overlay != OverlayNone {
		return ""
	}
	if m.screen == ScreenProducts || m.screen == ScreenCategories {
		return m.help.ShortHelpView(m.keys.catalogHelp())
	}
	return m.help.View(m.keys)
}
