package screens

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/thereceipt/label-designer/pkg/labelformat"
)

var quickPrintTypes = []string{labelformat.PrintText, labelformat.PrintQRCode, labelformat.PrintQRCodeText}

// QuickLabel is the input of the quick print form
type QuickLabel struct {
	Text      string
	FontSize  int
	LabelSize string
	PrintType string
	Copies    int
}

// Request builds a label request with one text line per input line
func (q QuickLabel) Request() (*labelformat.Request, error) {
	req := labelformat.DefaultRequest()
	req.LabelSize = q.LabelSize
	req.PrintType = q.PrintType
	if q.Copies > 0 {
		req.PrintCount = q.Copies
	}
	for _, line := range strings.Split(strings.TrimRight(q.Text, "\n"), "\n") {
		req.Text = append(req.Text, labelformat.TextLineSpec{Text: line, Size: q.FontSize, Align: "center"})
	}
	req.Normalize()
	if err := labelformat.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// PrintBuilder is a screen for printing a quick text label
type PrintBuilder struct {
	app       *tview.Application
	print     PrintFunc
	form      *tview.Form
	text      *tview.TextArea
	labelSize *tview.DropDown
	printType *tview.DropDown
	result    *tview.TextView
	layout    *tview.Flex
}

// NewPrintBuilder creates a new print builder screen
func NewPrintBuilder(app *tview.Application, defaultSize string, print PrintFunc) *PrintBuilder {
	p := &PrintBuilder{
		app:   app,
		print: print,
	}

	p.setupUI(defaultSize)
	return p
}

func (p *PrintBuilder) setupUI(defaultSize string) {
	sizes := make([]string, len(labelformat.AllSizes))
	current := 0
	for i, ls := range labelformat.AllSizes {
		sizes[i] = ls.Name
		if ls.Identifier == defaultSize {
			current = i
		}
	}

	p.text = tview.NewTextArea().SetPlaceholder("One line per label line")
	p.text.SetLabel("Text")
	p.text.SetSize(4, 0)

	p.labelSize = tview.NewDropDown().SetLabel("Label size").SetOptions(sizes, nil)
	p.labelSize.SetCurrentOption(current)

	p.printType = tview.NewDropDown().SetLabel("Type").SetOptions(quickPrintTypes, nil)
	p.printType.SetCurrentOption(0)

	p.result = tview.NewTextView()
	p.result.SetBorder(true)
	p.result.SetTitle("Result")
	p.result.SetDynamicColors(true)

	p.form = tview.NewForm()
	p.form.SetBorder(true)
	p.form.SetTitle("Quick Label")
	p.form.AddFormItem(p.text)
	p.form.AddInputField("Font size", "70", 6, tview.InputFieldInteger, nil)
	p.form.AddFormItem(p.labelSize)
	p.form.AddFormItem(p.printType)
	p.form.AddInputField("Copies", "1", 6, tview.InputFieldInteger, nil)
	p.form.AddButton("Print", func() {
		p.submit()
	})

	p.layout = tview.NewFlex().
		AddItem(p.form, 0, 2, true).
		AddItem(p.result, 0, 1, false)
}

// Input reads the form
func (p *PrintBuilder) Input() QuickLabel {
	sizeIndex, _ := p.labelSize.GetCurrentOption()
	typeIndex, _ := p.printType.GetCurrentOption()
	q := QuickLabel{
		Text:      p.text.GetText(),
		FontSize:  p.intField("Font size"),
		PrintType: labelformat.PrintText,
		Copies:    p.intField("Copies"),
	}
	if sizeIndex >= 0 {
		q.LabelSize = labelformat.AllSizes[sizeIndex].Identifier
	}
	if typeIndex >= 0 {
		q.PrintType = quickPrintTypes[typeIndex]
	}
	return q
}

func (p *PrintBuilder) intField(label string) int {
	n, _ := strconv.Atoi(p.form.GetFormItemByLabel(label).(*tview.InputField).GetText())
	return n
}

func (p *PrintBuilder) submit() {
	req, err := p.Input().Request()
	if err != nil {
		p.result.SetText(fmt.Sprintf("[red]✗ %s[white]", tview.Escape(err.Error())))
		return
	}

	p.result.SetText("[yellow]Printing...[white]")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		status, err := p.print(ctx, req)
		p.app.QueueUpdateDraw(func() {
			p.result.SetText(PrintResult(labelformat.HumanName(req.LabelSize)+" label", status, err))
		})
	}()
}

// GetRoot returns the root primitive for this screen
func (p *PrintBuilder) GetRoot() tview.Primitive {
	return p.layout
}
