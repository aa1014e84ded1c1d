package screens

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/label-designer/internal/printer"
)

// Reporter reports printer status
type Reporter interface {
	Report(ctx context.Context) printer.Report
	Reset()
}

// DevicesView shows the printers found by the scanner
type DevicesView struct {
	app      *tview.Application
	scanner  Reporter
	printers []printer.Status
	list     *tview.List
	details  *tview.TextView
	layout   *tview.Flex
}

// NewDevicesView creates a new devices view screen
func NewDevicesView(app *tview.Application, scanner Reporter) *DevicesView {
	d := &DevicesView{
		app:     app,
		scanner: scanner,
	}

	d.setupUI()
	return d
}

func (d *DevicesView) setupUI() {
	d.list = tview.NewList()
	d.list.SetBorder(true)
	d.list.SetTitle("Printers")
	d.list.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		d.selectDevice(index)
	})

	d.details = tview.NewTextView()
	d.details.SetBorder(true)
	d.details.SetTitle("Printer Status")
	d.details.SetDynamicColors(true)

	d.layout = tview.NewFlex().
		AddItem(d.list, 0, 1, true).
		AddItem(d.details, 0, 2, false)

	d.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == 'r' {
			d.scanner.Reset()
			d.Rescan()
			return nil
		}
		return event
	})
}

// Rescan queries the scanner in the background and redraws when done
func (d *DevicesView) Rescan() {
	d.details.SetText("[yellow]Scanning...[white]")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		report := d.scanner.Report(ctx)
		d.app.QueueUpdateDraw(func() {
			d.Show(report)
		})
	}()
}

// Show renders a scanner report
func (d *DevicesView) Show(report printer.Report) {
	d.list.Clear()
	d.printers = report.Printers

	if len(d.printers) == 0 {
		d.list.AddItem("No printers detected", "", 0, nil)
		text := "[yellow]No printers connected[white]\n"
		for _, entry := range report.ScanLog {
			if entry.Error != nil {
				text += fmt.Sprintf("\n%s: %s", tview.Escape(entry.Device), tview.Escape(*entry.Error))
			}
		}
		d.details.SetText(text)
		return
	}

	for _, st := range d.printers {
		main, secondary := PrinterItem(st)
		if report.Selected != nil && *report.Selected == st.Path {
			main += " [green](selected)[white]"
		}
		d.list.AddItem(main, secondary, 0, nil)
	}
	d.list.SetCurrentItem(0)
	d.selectDevice(0)
}

func (d *DevicesView) selectDevice(index int) {
	if index < 0 || index >= len(d.printers) {
		return
	}
	d.details.SetText(PrinterDetails(d.printers[index]) + "\n[yellow]Press 'r' to rescan[white]")
}

// GetRoot returns the root primitive for this screen
func (d *DevicesView) GetRoot() tview.Primitive {
	return d.layout
}
