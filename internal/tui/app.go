// Package tui is the terminal dashboard shown while the server runs
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/tui/screens"
)

const refreshInterval = 2 * time.Second

// Deps are the services the dashboard shows
type Deps struct {
	Scanner   screens.Reporter
	Journal   *printer.Journal
	Labels    screens.LabelStore
	Print     screens.PrintFunc
	Logs      *LogBuffer
	Addr      string
	Model     string
	LabelSize string
}

// App is the tview dashboard
type App struct {
	App  *tview.Application
	deps Deps

	flex         *tview.Flex
	printersList *tview.List
	jobsTable    *tview.Table
	statusBox    *tview.TextView
	logsArea     *tview.TextView
	commandInput *tview.InputField

	currentScreen string
	devicesScreen *screens.DevicesView
	jobsScreen    *screens.JobsView
	labelsScreen  *screens.LabelsView
	printScreen   *screens.PrintBuilder

	report     printer.Report
	reportMu   sync.Mutex
	logVersion uint64
	running    atomic.Bool
	startTime  time.Time
}

// New creates the dashboard
func New(deps Deps) *App {
	if deps.Logs == nil {
		deps.Logs = NewLogBuffer(DefaultLogLines)
	}
	t := &App{
		App:           tview.NewApplication(),
		deps:          deps,
		currentScreen: "main",
		startTime:     time.Now(),
	}

	t.setupUI()
	t.devicesScreen = screens.NewDevicesView(t.App, deps.Scanner)
	t.jobsScreen = screens.NewJobsView(t.App, deps.Journal)
	t.labelsScreen = screens.NewLabelsView(t.App, deps.Labels, deps.Print)
	t.printScreen = screens.NewPrintBuilder(t.App, deps.LabelSize, deps.Print)
	return t
}

func (t *App) setupUI() {
	t.printersList = tview.NewList()
	t.printersList.SetBorder(true)
	t.printersList.SetTitle("Printers")

	t.jobsTable = tview.NewTable()
	t.jobsTable.SetBorder(true)
	t.jobsTable.SetTitle("Recent Jobs")

	t.statusBox = tview.NewTextView()
	t.statusBox.SetBorder(true)
	t.statusBox.SetTitle("Server")
	t.statusBox.SetDynamicColors(true)

	t.logsArea = tview.NewTextView()
	t.logsArea.SetBorder(true)
	t.logsArea.SetTitle("Logs")
	t.logsArea.SetScrollable(true)

	t.commandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0).
		SetPlaceholder("Type a command (e.g., 'help')")
	t.commandInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			t.executeCommand(t.commandInput.GetText())
			t.commandInput.SetText("")
		}
	})

	topRow := tview.NewFlex().
		AddItem(t.printersList, 0, 1, false).
		AddItem(t.jobsTable, 0, 1, false).
		AddItem(t.statusBox, 0, 1, false)

	bottom := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.logsArea, 0, 3, false).
		AddItem(t.commandInput, 1, 0, true)

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(topRow, 0, 1, false).
		AddItem(bottom, 0, 1, true)

	t.App.SetInputCapture(t.handleKey)
	t.App.SetRoot(t.flex, true)
}

func (t *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if t.currentScreen != "main" {
		if event.Key() == tcell.KeyEsc {
			t.showMainScreen()
			return nil
		}
		return event
	}

	// typing a command
	if t.commandInput.HasFocus() {
		if event.Key() == tcell.KeyEsc {
			t.App.SetFocus(t.printersList)
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyCtrlC:
		t.App.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case ':':
			t.App.SetFocus(t.commandInput)
			return nil
		case 'q':
			t.App.Stop()
			return nil
		case 'd':
			t.showScreen("devices")
			return nil
		case 'j':
			t.showScreen("jobs")
			return nil
		case 'l':
			t.showScreen("labels")
			return nil
		case 'p':
			t.showScreen("print")
			return nil
		}
	}
	return event
}

// Run shows the dashboard until the user quits or ctx is cancelled
func (t *App) Run(ctx context.Context) error {
	t.refreshAll()
	t.scanPrinters()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go t.refreshTicker(ctx)
	go func() {
		<-ctx.Done()
		t.App.Stop()
	}()

	t.running.Store(true)
	defer t.running.Store(false)
	return t.App.Run()
}

func (t *App) refreshTicker(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	var n int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			// the scanner caches its result, polling it less often keeps probes rare
			if n%5 == 0 {
				t.scanPrinters()
			}
			t.App.QueueUpdateDraw(t.refreshAll)
		}
	}
}

func (t *App) scanPrinters() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		report := t.deps.Scanner.Report(ctx)
		t.reportMu.Lock()
		t.report = report
		t.reportMu.Unlock()
		t.queueDraw(t.refreshPrinters)
	}()
}

// queueDraw runs fn on the UI goroutine once the application runs
func (t *App) queueDraw(fn func()) {
	if t.running.Load() {
		t.App.QueueUpdateDraw(fn)
	}
}

// PrinterAdded is a monitor hook
func (t *App) PrinterAdded(st printer.Status) {
	t.reportMu.Lock()
	t.report.Printers = append(t.report.Printers, st)
	t.reportMu.Unlock()
	t.queueDraw(t.refreshPrinters)
}

// PrinterRemoved is a monitor hook
func (t *App) PrinterRemoved(path string) {
	t.reportMu.Lock()
	kept := t.report.Printers[:0]
	for _, st := range t.report.Printers {
		if st.Path != path {
			kept = append(kept, st)
		}
	}
	t.report.Printers = kept
	t.reportMu.Unlock()
	t.queueDraw(t.refreshPrinters)
}

func (t *App) refreshAll() {
	t.refreshPrinters()
	t.refreshJobs()
	t.refreshStatus()
	t.refreshLogs()
}

func (t *App) refreshPrinters() {
	t.reportMu.Lock()
	printers := append([]printer.Status(nil), t.report.Printers...)
	t.reportMu.Unlock()

	t.printersList.Clear()
	if len(printers) == 0 {
		t.printersList.AddItem("No printers detected", "", 0, nil)
		return
	}
	for _, st := range printers {
		main, secondary := screens.PrinterItem(st)
		t.printersList.AddItem(main, secondary, 0, nil)
	}
}

func (t *App) refreshJobs() {
	t.jobsTable.Clear()
	for col, h := range []string{"Status", "Label", "Labels", "Age"} {
		t.jobsTable.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	jobs := t.deps.Journal.All()
	for i, job := range jobs {
		row := i + 1
		t.jobsTable.SetCell(row, 0, tview.NewTableCell(screens.JobIcon(job.Status)+" "+job.Status))
		t.jobsTable.SetCell(row, 1, tview.NewTableCell(job.LabelSize))
		t.jobsTable.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", job.Labels)))
		t.jobsTable.SetCell(row, 3, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}
	if len(jobs) > 0 {
		t.jobsTable.SetCell(len(jobs)+1, 0, tview.NewTableCell(screens.JobCounts(jobs)).SetSelectable(false))
	}
}

func (t *App) refreshStatus() {
	t.statusBox.SetText(t.statusText())
}

func (t *App) statusText() string {
	uptime := time.Since(t.startTime)
	labels := "?"
	if entries, err := t.deps.Labels.List(); err == nil {
		labels = fmt.Sprintf("%d", len(entries))
	}
	return fmt.Sprintf(`[green]🟢 Running[white]

Uptime: %dh %dm
API: %s
Model: %s
Default label: %s
Jobs: %d
Saved labels: %s`,
		int(uptime.Hours()), int(uptime.Minutes())%60,
		t.deps.Addr, t.deps.Model, t.deps.LabelSize,
		len(t.deps.Journal.All()), labels)
}

func (t *App) refreshLogs() {
	lines, version := t.deps.Logs.Lines()
	if version == t.logVersion {
		return
	}
	t.logVersion = version
	t.logsArea.SetText(strings.Join(lines, "\n"))
	t.logsArea.ScrollToEnd()
}

// AddLog appends a dashboard message to the logs panel
func (t *App) AddLog(message string) {
	fmt.Fprintf(t.deps.Logs, "%s  %s\n", time.Now().Format("15:04:05"), message)
	t.queueDraw(t.refreshLogs)
}

func (t *App) executeCommand(cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}
	t.AddLog("> " + cmd)

	switch strings.ToLower(parts[0]) {
	case "printers", "devices", "d":
		t.showScreen("devices")
	case "jobs", "j":
		t.showScreen("jobs")
	case "labels", "l":
		t.showScreen("labels")
	case "print", "p":
		t.showScreen("print")
	case "rescan":
		t.deps.Scanner.Reset()
		t.scanPrinters()
		t.AddLog("Rescanning printers...")
	case "status", "s", "refresh":
		t.refreshAll()
	case "clear":
		t.deps.Logs.Clear()
		t.refreshLogs()
	case "help", "h", "?":
		t.AddLog(helpText)
	case "quit", "q", "exit":
		t.App.Stop()
	default:
		t.AddLog(fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", parts[0]))
	}
}

const helpText = `Available commands:
  printers, d   - Printer status
  jobs, j       - Print journal
  labels, l     - Saved labels
  print, p      - Print a quick label
  rescan        - Forget cached scan and detect printers
  status, s     - Refresh panels
  clear         - Clear logs
  help, h, ?    - Show this help
  quit, q       - Exit

Keyboard shortcuts (main screen):
  :  command input   d j l p  screens
  Esc  back to main  q  quit`

func (t *App) showScreen(name string) {
	var root tview.Primitive
	switch name {
	case "devices":
		root = t.devicesScreen.GetRoot()
		t.devicesScreen.Rescan()
	case "jobs":
		t.jobsScreen.Refresh()
		root = t.jobsScreen.GetRoot()
	case "labels":
		t.labelsScreen.Refresh()
		root = t.labelsScreen.GetRoot()
	case "print":
		root = t.printScreen.GetRoot()
	default:
		t.showMainScreen()
		return
	}
	t.currentScreen = name
	t.App.SetRoot(root, true)
	t.App.SetFocus(root)
}

func (t *App) showMainScreen() {
	t.currentScreen = "main"
	t.App.SetRoot(t.flex, true)
	t.App.SetFocus(t.commandInput)
}
