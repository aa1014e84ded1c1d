package screens

import (
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/label-designer/internal/printer"
)

// JobsView shows the print journal
type JobsView struct {
	app     *tview.Application
	journal *printer.Journal
	jobs    []printer.Job
	table   *tview.Table
	details *tview.TextView
	layout  *tview.Flex
}

// NewJobsView creates a new jobs view screen
func NewJobsView(app *tview.Application, journal *printer.Journal) *JobsView {
	j := &JobsView{
		app:     app,
		journal: journal,
	}

	j.setupUI()
	return j
}

func (j *JobsView) setupUI() {
	j.table = tview.NewTable()
	j.table.SetBorder(true)
	j.table.SetTitle("Print Jobs")
	j.table.SetSelectable(true, false)
	j.table.SetFixed(1, 0)
	j.table.SetSelectedFunc(func(row, column int) {
		j.selectJob(row)
	})

	j.details = tview.NewTextView()
	j.details.SetBorder(true)
	j.details.SetTitle("Job Details")
	j.details.SetDynamicColors(true)

	j.layout = tview.NewFlex().
		AddItem(j.table, 0, 2, true).
		AddItem(j.details, 0, 1, false)

	j.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() != tcell.KeyRune {
			return event
		}
		switch event.Rune() {
		case 'r':
			j.Refresh()
			return nil
		case 'c':
			j.journal.ClearCompleted()
			j.Refresh()
			return nil
		}
		return event
	})

	j.Refresh()
}

// Refresh reloads the journal
func (j *JobsView) Refresh() {
	j.table.Clear()
	headers := []string{"Status", "Device", "Label", "Labels", "Age"}
	for col, h := range headers {
		j.table.SetCell(0, col, tview.NewTableCell(h).SetAlign(tview.AlignCenter).SetSelectable(false))
	}

	j.jobs = j.journal.All()
	for i, job := range j.jobs {
		row := i + 1
		j.table.SetCell(row, 0, tview.NewTableCell(JobIcon(job.Status)+" "+job.Status))
		j.table.SetCell(row, 1, tview.NewTableCell(tview.Escape(job.Device)))
		j.table.SetCell(row, 2, tview.NewTableCell(job.LabelSize))
		j.table.SetCell(row, 3, tview.NewTableCell(strconv.Itoa(job.Labels)).SetAlign(tview.AlignRight))
		j.table.SetCell(row, 4, tview.NewTableCell(time.Since(job.CreatedAt).Truncate(time.Second).String()))
	}

	if len(j.jobs) == 0 {
		j.details.SetText("[yellow]No print jobs yet[white]")
		return
	}
	j.details.SetText(JobCounts(j.jobs) + "\n\n[yellow]Enter for details, 'c' clears completed[white]")
}

func (j *JobsView) selectJob(row int) {
	if row < 1 || row > len(j.jobs) {
		return
	}
	j.details.SetText(JobDetails(j.jobs[row-1]))
}

// GetRoot returns the root primitive for this screen
func (j *JobsView) GetRoot() tview.Primitive {
	return j.layout
}
