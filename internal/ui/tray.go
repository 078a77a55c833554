package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/clipdesk/clipdesk-agent/internal/workflow"
)

// Session is the part of the workflow the tray reads and drives.
type Session interface {
	State() workflow.Snapshot
	Subscribe(fn func(workflow.Snapshot))
	DiscardFile() error
}

type Tray struct {
	session Session
	logger  *slog.Logger

	queuedItem   *systray.MenuItem
	sourceItem   *systray.MenuItem
	durationItem *systray.MenuItem
	statusItem   *systray.MenuItem
	discardItem  *systray.MenuItem

	mu    sync.Mutex
	ready bool

	onOpen func() error
	onQuit func()
}

type TrayConfig struct {
	Session Session
	Logger  *slog.Logger
	OnOpen  func() error
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session: cfg.Session,
		logger:  cfg.Logger,
		onOpen:  cfg.OnOpen,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Clipdesk")
	systray.SetTooltip("Clipdesk Agent")

	t.queuedItem = systray.AddMenuItem("Queued: 0", "Clips waiting to be trimmed")
	t.queuedItem.Disable()
	t.sourceItem = systray.AddMenuItem("Source: None", "Selected video")
	t.sourceItem.Disable()
	t.durationItem = systray.AddMenuItem("Duration: --:--", "Source duration")
	t.durationItem.Disable()
	t.statusItem = systray.AddMenuItem("Status: Idle", "Workflow status")
	t.statusItem.Disable()

	systray.AddSeparator()

	openItem := systray.AddMenuItem("Open Workspace", "Open the trim workspace")
	t.discardItem = systray.AddMenuItem("Change Video", "Discard the selected video")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Clipdesk Agent")

	t.mu.Lock()
	t.ready = true
	t.mu.Unlock()

	t.Update(t.session.State())
	t.session.Subscribe(t.Update)

	go func() {
		for {
			select {
			case <-openItem.ClickedCh:
				t.handleOpen()
			case <-t.discardItem.ClickedCh:
				if err := t.session.DiscardFile(); err != nil {
					t.logger.Warn("cannot change video", "error", err)
				}
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleOpen() {
	if t.onOpen != nil {
		if err := t.onOpen(); err != nil {
			t.logger.Error("failed to open workspace", "error", err)
		}
	}
}

// Update redraws the stats from snap. Calls before the tray is ready are
// dropped.
func (t *Tray) Update(snap workflow.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}

	s := statsFor(snap)
	t.queuedItem.SetTitle(s.queued)
	t.sourceItem.SetTitle(s.source)
	t.durationItem.SetTitle(s.duration)
	t.statusItem.SetTitle(s.status)
	if s.canDiscard {
		t.discardItem.Enable()
	} else {
		t.discardItem.Disable()
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

type trayStats struct {
	queued     string
	source     string
	duration   string
	status     string
	canDiscard bool
}

func statsFor(snap workflow.Snapshot) trayStats {
	s := trayStats{
		queued:   fmt.Sprintf("Queued: %d", len(snap.Clips)),
		source:   "Source: None",
		duration: "Duration: --:--",
		status:   "Status: Idle",
	}
	if snap.FileName != "" {
		s.source = "Source: Loaded"
		s.canDiscard = !snap.Pending
	}
	if snap.Duration != "" {
		s.duration = "Duration: " + snap.Duration
	}

	switch {
	case snap.Pending:
		s.status = "Status: Trimming"
	case snap.Uploading:
		s.status = "Status: Uploading"
	case snap.LastError != "":
		s.status = "Status: Error"
	case snap.Stage == workflow.StageScheduling:
		s.status = "Status: Ready to schedule"
	case snap.FileName != "":
		s.status = "Status: Editing"
	}
	return s
}
