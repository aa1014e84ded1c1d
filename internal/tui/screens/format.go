package screens

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/repository"
)

// JobIcon returns the marker shown next to a job status
func JobIcon(status string) string {
	switch status {
	case printer.JobPrinting:
		return "🟡"
	case printer.JobCompleted:
		return "✅"
	case printer.JobFailed:
		return "❌"
	default:
		return "⚪"
	}
}

// PrinterItem returns the list texts for a printer
func PrinterItem(st printer.Status) (string, string) {
	icon := "🟢"
	if len(st.Errors) > 0 || st.StatusType == "Unknown" {
		icon = "🟠"
	}
	main := fmt.Sprintf("%s %s", icon, tview.Escape(st.Model))
	secondary := tview.Escape(st.Path)
	if st.MediaWidth != nil {
		secondary += fmt.Sprintf(" • %dmm", *st.MediaWidth)
		if st.MediaLength > 0 {
			secondary += fmt.Sprintf(" x %dmm", st.MediaLength)
		}
	}
	return main, secondary
}

// PrinterDetails renders a printer status for a details panel
func PrinterDetails(st printer.Status) string {
	var b strings.Builder
	field := func(name, value string) {
		fmt.Fprintf(&b, "[yellow]%s:[white] %s\n", name, tview.Escape(value))
	}
	field("Path", st.Path)
	field("Model", st.Model)
	field("Status", st.StatusType)
	field("Phase", st.PhaseType)
	if st.MediaType != nil {
		field("Media", *st.MediaType)
	}
	if st.MediaWidth != nil {
		field("Width", fmt.Sprintf("%dmm", *st.MediaWidth))
	}
	if st.MediaLength > 0 {
		field("Length", fmt.Sprintf("%dmm", st.MediaLength))
	}
	if st.TapeColor != "" {
		field("Tape", st.TapeColor)
	}
	field("Red", fmt.Sprintf("%t", st.RedSupport))
	if len(st.Errors) > 0 {
		b.WriteString("\n[red]Errors:[white]\n")
		for _, e := range st.Errors {
			fmt.Fprintf(&b, "  - %s\n", tview.Escape(e))
		}
	}
	return b.String()
}

// JobCounts summarizes jobs by status
func JobCounts(jobs []printer.Job) string {
	var printing, completed, failed int
	for _, job := range jobs {
		switch job.Status {
		case printer.JobPrinting:
			printing++
		case printer.JobCompleted:
			completed++
		case printer.JobFailed:
			failed++
		}
	}
	return fmt.Sprintf("[%d] Printing [%d] Completed [%d] Failed", printing, completed, failed)
}

// JobDetails renders a job for a details panel
func JobDetails(job printer.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]ID:[white] %s\n", job.ID)
	fmt.Fprintf(&b, "[yellow]Status:[white] %s %s\n", JobIcon(job.Status), job.Status)
	fmt.Fprintf(&b, "[yellow]Device:[white] %s\n", tview.Escape(job.Device))
	fmt.Fprintf(&b, "[yellow]Model:[white] %s\n", job.Model)
	fmt.Fprintf(&b, "[yellow]Label:[white] %s\n", job.LabelSize)
	fmt.Fprintf(&b, "[yellow]Labels:[white] %d\n", job.Labels)
	fmt.Fprintf(&b, "[yellow]Bytes:[white] %d\n", job.Bytes)
	fmt.Fprintf(&b, "[yellow]Created:[white] %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	if job.FinishedAt != nil {
		fmt.Fprintf(&b, "[yellow]Took:[white] %s\n", job.FinishedAt.Sub(job.CreatedAt).Round(time.Millisecond))
	}
	if job.Message != "" {
		fmt.Fprintf(&b, "\n[red]%s[white]\n", tview.Escape(job.Message))
	}
	return b.String()
}

// LabelItem returns the list texts for a saved label
func LabelItem(e repository.Entry) (string, string) {
	size := "unknown size"
	if e.LabelSize != nil {
		size = *e.LabelSize
	}
	modified := time.Unix(e.Mtime, 0).Format("2006-01-02 15:04")
	return tview.Escape(strings.TrimSuffix(e.Name, ".json")), fmt.Sprintf("%s • %s • %s", size, modified, humanBytes(e.Size))
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
