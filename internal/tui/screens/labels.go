package screens

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/thereceipt/label-designer/internal/repository"
	"github.com/thereceipt/label-designer/pkg/labelformat"
)

// LabelStore is the saved label repository
type LabelStore interface {
	List() ([]repository.Entry, error)
	Request(name string) (*labelformat.Request, error)
	Delete(name string) error
}

// PrintFunc prints a label request, returning a non-empty status on printer failure
type PrintFunc func(ctx context.Context, req *labelformat.Request) (string, error)

// LabelsView lists saved labels and prints or deletes them
type LabelsView struct {
	app     *tview.Application
	store   LabelStore
	print   PrintFunc
	entries []repository.Entry
	list    *tview.List
	details *tview.TextView
	form    *tview.Form
	layout  *tview.Flex
	pages   *tview.Pages
}

// NewLabelsView creates the saved labels screen
func NewLabelsView(app *tview.Application, store LabelStore, print PrintFunc) *LabelsView {
	l := &LabelsView{
		app:   app,
		store: store,
		print: print,
	}

	l.setupUI()
	return l
}

func (l *LabelsView) setupUI() {
	l.list = tview.NewList()
	l.list.SetBorder(true)
	l.list.SetTitle("Saved Labels")
	l.list.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		l.selectLabel(index)
	})
	l.list.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		l.app.SetFocus(l.form)
	})

	l.details = tview.NewTextView()
	l.details.SetBorder(true)
	l.details.SetTitle("Label")
	l.details.SetDynamicColors(true)

	l.form = tview.NewForm()
	l.form.SetBorder(true)
	l.form.SetTitle("Print")
	l.form.AddInputField("Copies", "1", 6, tview.InputFieldInteger, nil)
	l.form.AddCheckbox("Cut once", false, nil)
	l.form.AddButton("Print", func() {
		l.printSelected()
	})
	l.form.AddButton("Back", func() {
		l.app.SetFocus(l.list)
	})

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(l.details, 0, 2, false).
		AddItem(l.form, 9, 0, false)

	l.layout = tview.NewFlex().
		AddItem(l.list, 0, 1, true).
		AddItem(right, 0, 2, false)

	l.pages = tview.NewPages().AddPage("labels", l.layout, true, true)

	l.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() != tcell.KeyRune {
			return event
		}
		switch event.Rune() {
		case 'r':
			l.Refresh()
			return nil
		case 'p':
			l.app.SetFocus(l.form)
			return nil
		case 'd':
			l.confirmDelete()
			return nil
		}
		return event
	})

	l.Refresh()
}

// Refresh reloads the repository listing
func (l *LabelsView) Refresh() {
	l.list.Clear()
	entries, err := l.store.List()
	l.entries = entries
	if err != nil {
		l.list.AddItem("Error loading labels", tview.Escape(err.Error()), 0, nil)
		return
	}
	if len(entries) == 0 {
		l.list.AddItem("No saved labels", "", 0, nil)
		l.details.SetText("[yellow]Save a label from the web designer to see it here[white]")
		return
	}
	for _, e := range entries {
		main, secondary := LabelItem(e)
		l.list.AddItem(main, secondary, 0, nil)
	}
	l.list.SetCurrentItem(0)
	l.selectLabel(0)
}

// Selected returns the selected label name
func (l *LabelsView) Selected() (string, bool) {
	i := l.list.GetCurrentItem()
	if i < 0 || i >= len(l.entries) {
		return "", false
	}
	return l.entries[i].Name, true
}

func (l *LabelsView) selectLabel(index int) {
	if index < 0 || index >= len(l.entries) {
		return
	}
	name := l.entries[index].Name
	req, err := l.store.Request(name)
	if err != nil {
		l.details.SetText(fmt.Sprintf("[red]✗ %s[white]", tview.Escape(err.Error())))
		return
	}
	l.details.SetText(RequestSummary(name, req) + "\n[yellow]'p' print, 'd' delete, 'r' refresh[white]")
}

// RequestSummary renders the main fields of a label request
func RequestSummary(name string, req *labelformat.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]Name:[white] %s\n", tview.Escape(name))
	fmt.Fprintf(&b, "[yellow]Size:[white] %s\n", labelformat.HumanName(req.LabelSize))
	fmt.Fprintf(&b, "[yellow]Orientation:[white] %s\n", req.Orientation)
	fmt.Fprintf(&b, "[yellow]Type:[white] %s\n", req.PrintType)
	if req.PrintType != labelformat.PrintImage {
		b.WriteString("[yellow]Text:[white]\n")
		for _, line := range req.Text {
			fmt.Fprintf(&b, "  %s\n", tview.Escape(line.Text))
		}
	}
	if req.Image != "" {
		fmt.Fprintf(&b, "[yellow]Image:[white] %s\n", tview.Escape(req.Image))
	}
	return b.String()
}

func (l *LabelsView) printSelected() {
	name, ok := l.Selected()
	if !ok {
		l.details.SetText("[red]✗ No label selected[white]")
		return
	}
	req, err := l.store.Request(name)
	if err != nil {
		l.details.SetText(fmt.Sprintf("[red]✗ %s[white]", tview.Escape(err.Error())))
		return
	}
	if n, err := strconv.Atoi(l.form.GetFormItemByLabel("Copies").(*tview.InputField).GetText()); err == nil && n > 0 {
		req.PrintCount = n
	}
	req.CutOnce = l.form.GetFormItemByLabel("Cut once").(*tview.Checkbox).IsChecked()

	l.details.SetText(fmt.Sprintf("[yellow]Printing %s...[white]", tview.Escape(name)))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		status, err := l.print(ctx, req)
		l.app.QueueUpdateDraw(func() {
			l.details.SetText(PrintResult(name, status, err))
		})
	}()
}

// PrintResult describes the outcome of a print
func PrintResult(name, status string, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("[red]✗ %s[white]", tview.Escape(err.Error()))
	case status != "":
		return fmt.Sprintf("[red]✗ %s[white]", tview.Escape(status))
	default:
		return fmt.Sprintf("[green]✓ Printed %s[white]", tview.Escape(name))
	}
}

func (l *LabelsView) confirmDelete() {
	name, ok := l.Selected()
	if !ok {
		return
	}
	modal := tview.NewModal().
		SetText(fmt.Sprintf("Delete %s?", name)).
		AddButtons([]string{"Delete", "Cancel"}).
		SetDoneFunc(func(_ int, label string) {
			l.pages.RemovePage("confirm")
			if label == "Delete" {
				l.Delete(name)
			}
			l.app.SetFocus(l.list)
		})
	l.pages.AddPage("confirm", modal, false, true)
	l.app.SetFocus(modal)
}

// Delete removes a saved label and refreshes the list
func (l *LabelsView) Delete(name string) {
	if err := l.store.Delete(name); err != nil {
		l.details.SetText(fmt.Sprintf("[red]✗ %s[white]", tview.Escape(err.Error())))
		return
	}
	l.Refresh()
	l.details.SetText(fmt.Sprintf("[green]✓ Deleted %s[white]", tview.Escape(name)))
}

// GetRoot returns the root primitive for this screen
func (l *LabelsView) GetRoot() tview.Primitive {
	return l.pages
}
