package screens

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/repository"
	"github.com/thereceipt/label-designer/pkg/labelformat"
)

func TestJobCounts(t *testing.T) {
	jobs := []printer.Job{
		{Status: printer.JobCompleted},
		{Status: printer.JobCompleted},
		{Status: printer.JobFailed},
		{Status: printer.JobPrinting},
	}
	assert.Equal(t, "[1] Printing [2] Completed [1] Failed", JobCounts(jobs))
	assert.Equal(t, "✅", JobIcon(printer.JobCompleted))
	assert.Equal(t, "⚪", JobIcon("queued"))
}

func TestJobDetails(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	finished := created.Add(1500 * time.Millisecond)
	text := JobDetails(printer.Job{
		ID:         "abc",
		Device:     "tcp://[::1]:9100",
		Status:     printer.JobFailed,
		LabelSize:  "62",
		Labels:     2,
		Message:    "Printer is not ready",
		CreatedAt:  created,
		FinishedAt: &finished,
	})
	assert.Contains(t, text, "Took:[white] 1.5s")
	assert.Contains(t, text, "Printer is not ready")
	// brackets in device names must not be read as color tags
	assert.Contains(t, text, "tcp://[::1[]:9100")
}

func TestPrinterItem(t *testing.T) {
	width := 62
	main, secondary := PrinterItem(printer.Status{Path: "/dev/usb/lp0", Model: "QL-800", MediaWidth: &width, StatusType: "Reply to status request", Errors: []string{}})
	assert.Equal(t, "🟢 QL-800", main)
	assert.Equal(t, "/dev/usb/lp0 • 62mm", secondary)

	main, _ = PrinterItem(printer.Status{Path: "x", Model: "Unknown", StatusType: "Unknown"})
	assert.Equal(t, "🟠 Unknown", main)
}

func TestLabelItem(t *testing.T) {
	size := "62mm endless"
	main, secondary := LabelItem(repository.Entry{Name: "shelf.json", Mtime: time.Date(2024, 1, 2, 3, 4, 0, 0, time.Local).Unix(), Size: 2048, LabelSize: &size})
	assert.Equal(t, "shelf", main)
	assert.Equal(t, "62mm endless • 2024-01-02 03:04 • 2.0 KiB", secondary)

	_, secondary = LabelItem(repository.Entry{Name: "x.json", Size: 10})
	assert.Contains(t, secondary, "unknown size")
	assert.Contains(t, secondary, "10 B")
}

func TestPrintResult(t *testing.T) {
	assert.Contains(t, PrintResult("a", "", nil), "Printed a")
	assert.Contains(t, PrintResult("a", "Printer is not ready", nil), "Printer is not ready")
	assert.Contains(t, PrintResult("a", "", errors.New("boom")), "boom")
}

func TestQuickLabelRequest(t *testing.T) {
	req, err := QuickLabel{
		Text:      "Hello\nWorld\n",
		FontSize:  50,
		LabelSize: "29x90",
		PrintType: labelformat.PrintText,
		Copies:    3,
	}.Request()
	require.NoError(t, err)
	require.Len(t, req.Text, 2)
	assert.Equal(t, "World", req.Text[1].Text)
	assert.Equal(t, 50, req.Text[0].Size)
	assert.Equal(t, "29x90", req.LabelSize)
	assert.Equal(t, 3, req.PrintCount)

	_, err = QuickLabel{Text: "x", LabelSize: "62", PrintType: labelformat.PrintText}.Request()
	assert.Error(t, err, "font size is required")

	_, err = QuickLabel{Text: "x", FontSize: 40, LabelSize: "nope", PrintType: labelformat.PrintText}.Request()
	assert.ErrorIs(t, err, labelformat.ErrUnknownLabelSize)
}

func TestRequestSummary(t *testing.T) {
	req := labelformat.DefaultRequest()
	req.Text = []labelformat.TextLineSpec{{Text: "A1", Size: 40}}
	text := RequestSummary("shelf.json", &req)
	assert.Contains(t, text, "62mm endless")
	assert.Contains(t, text, "A1")
}
