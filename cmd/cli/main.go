package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/thereceipt/label-designer/pkg/labelformat"
)

const defaultServerURL = "http://localhost:8013"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("labelctl", flag.ContinueOnError)
	server := fs.String("server", envOr("LABELCTL_SERVER", defaultServerURL), "server URL")
	fs.StringVar(server, "s", *server, "server URL (short)")
	fs.Usage = func() { printUsage(fs.Output()) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		printUsage(os.Stderr)
		return flag.ErrHelp
	}

	c := newClient(*server)
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "status":
		return cmdStatus(ctx, c, rest, out)
	case "list", "ls":
		return cmdList(ctx, c, out)
	case "jobs":
		return cmdJobs(ctx, c, out)
	case "preview":
		return cmdPreview(ctx, c, rest, out)
	case "print":
		return cmdPrint(ctx, c, rest, out)
	case "print-saved":
		return cmdPrintSaved(ctx, c, rest, out)
	case "help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("unknown command %q, see labelctl help", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s

Usage:
  labelctl [-s url] <command> [flags] [text lines...]

Commands:
  status [-rescan]              Show printer status
  list                          List saved labels
  jobs                          List recent print jobs
  preview [label flags] TEXT... Render a preview (-o file, -clipboard)
  print [label flags] TEXT...   Print a label (-count, -cut-once)
  print-saved NAME              Print a saved label (-count, -cut-once)

Each TEXT argument is one label line. The server URL defaults to
$LABELCTL_SERVER or %s.

Examples:
  labelctl print -size 29x90 -font-size 60 "Shelf A1" "Screws M4"
  labelctl preview -type qrcode -code https://example.com -o qr.png
  labelctl print-saved -count 3 shelf_tag
`, titleStyle.Render("Label Designer CLI"), defaultServerURL)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// labelOptions are the flags shared by preview and print
type labelOptions struct {
	size        string
	fontSize    int
	font        string
	align       string
	printType   string
	code        string
	orientation string
	image       string
	red         bool
	highRes     bool
}

func (o *labelOptions) bind(fs *flag.FlagSet) {
	fs.StringVar(&o.size, "size", "62", "label size identifier")
	fs.IntVar(&o.fontSize, "font-size", 70, "font size of every line")
	fs.StringVar(&o.font, "font", "", `font as "Family,Style"`)
	fs.StringVar(&o.align, "align", "center", "left, center or right")
	fs.StringVar(&o.printType, "type", labelformat.PrintText, "text, qrcode, qrcode_text or image")
	fs.StringVar(&o.code, "code", "", "barcode or QR content")
	fs.StringVar(&o.orientation, "orientation", "standard", "standard or rotated")
	fs.StringVar(&o.image, "image", "", "image file for -type image")
	fs.BoolVar(&o.red, "red", false, "print text in red")
	fs.BoolVar(&o.highRes, "high-res", false, "600 dpi output")
}

func (o *labelOptions) form(lines []string) labelForm {
	values := url.Values{}
	values.Set("label_size", o.size)
	values.Set("print_type", o.printType)
	values.Set("orientation", o.orientation)
	if o.code != "" {
		values.Set("code_text", o.code)
	}
	if o.highRes {
		values.Set("high_res", "true")
	}
	color := ""
	if o.red {
		color = "red"
		values.Set("print_color", "red")
	}
	specs := make([]labelformat.TextLineSpec, 0, len(lines))
	for _, line := range lines {
		specs = append(specs, labelformat.TextLineSpec{
			Text:  line,
			Font:  o.font,
			Size:  o.fontSize,
			Align: o.align,
			Color: color,
		})
	}
	return labelForm{Lines: specs, Values: values, ImagePath: o.image}
}

func cmdStatus(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	rescan := fs.Bool("rescan", false, "forget the cached scan first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := c.status(ctx, *rescan)
	if err != nil {
		return err
	}

	selected := "none"
	if st.Selected != nil {
		selected = *st.Selected
	}
	lines := []string{
		titleStyle.Render("Selected printer"),
		field("Path", selected),
		field("Model", st.Model),
		field("Status", st.StatusType),
		field("Red", st.RedSupport),
	}
	if st.MediaWidth != nil {
		lines = append(lines, field("Media", fmt.Sprintf("%dmm", *st.MediaWidth)))
	}
	for _, e := range st.Errors {
		lines = append(lines, errorStyle.Render(e))
	}
	fmt.Fprintln(out, cardStyle.Render(strings.Join(lines, "\n")))

	rows := make([][]string, 0, len(st.Printers))
	for _, p := range st.Printers {
		state := "ok"
		if len(p.Errors) > 0 {
			state = "error"
		}
		media := "-"
		if p.MediaWidth != nil {
			media = fmt.Sprintf("%dmm", *p.MediaWidth)
		}
		rows = append(rows, []string{statusDot(state), p.Path, p.Model, p.StatusType, media})
	}
	if len(rows) > 0 {
		fmt.Fprint(out, table([]string{"", "Path", "Model", "Status", "Media"}, rows))
	}
	return nil
}

func cmdList(ctx context.Context, c *client, out io.Writer) error {
	files, err := c.list(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, labelStyle.Render("No saved labels"))
		return nil
	}
	rows := make([][]string, len(files))
	for i, f := range files {
		size := "-"
		if f.LabelSize != nil {
			size = *f.LabelSize
		}
		rows[i] = []string{
			strings.TrimSuffix(f.Name, ".json"),
			size,
			time.Unix(f.Mtime, 0).Format("2006-01-02 15:04"),
		}
	}
	fmt.Fprint(out, table([]string{"Name", "Label", "Modified"}, rows))
	return nil
}

func cmdJobs(ctx context.Context, c *client, out io.Writer) error {
	jobs, err := c.jobs(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, labelStyle.Render("No print jobs"))
		return nil
	}
	rows := make([][]string, len(jobs))
	for i, j := range jobs {
		rows[i] = []string{
			statusDot(j.Status) + " " + j.Status,
			j.LabelSize,
			strconv.Itoa(j.Labels),
			j.CreatedAt.Local().Format("15:04:05"),
			truncate(j.Message, 40),
		}
	}
	fmt.Fprint(out, table([]string{"Status", "Label", "Labels", "Time", "Message"}, rows))
	return nil
}

func cmdPreview(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	var opts labelOptions
	opts.bind(fs)
	output := fs.String("o", "label.png", "output file (.png or .pdf)")
	toClipboard := fs.Bool("clipboard", false, "copy the base64 PNG to the clipboard instead of writing a file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form := opts.form(fs.Args())

	if *toClipboard {
		data, err := c.preview(ctx, form, "base64")
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(string(data)); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Copied %d bytes of base64 PNG", len(data))))
		return nil
	}

	format := "png"
	if strings.HasSuffix(strings.ToLower(*output), ".pdf") {
		format = "pdf"
	}
	data, err := c.preview(ctx, form, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	fmt.Fprintln(out, successStyle.Render("✓ Wrote "+*output))
	return nil
}

func cmdPrint(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	var opts labelOptions
	opts.bind(fs)
	count := fs.Int("count", 1, "number of copies")
	cutOnce := fs.Bool("cut-once", false, "cut only after the last copy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form := opts.form(fs.Args())
	form.Values.Set("print_count", strconv.Itoa(*count))
	if *cutOnce {
		form.Values.Set("cut_once", "true")
	}

	err := withSpinner(fmt.Sprintf("Printing %d × %s", *count, labelformat.HumanName(opts.size)), func() error {
		return c.print(ctx, form)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render("✓ Printed"))
	return nil
}

func cmdPrintSaved(ctx context.Context, c *client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("print-saved", flag.ContinueOnError)
	count := fs.Int("count", 0, "number of copies, default from the saved label")
	cutOnce := fs.Bool("cut-once", false, "cut only after the last copy")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("print-saved needs exactly one label name")
	}
	name := fs.Arg(0)

	values := url.Values{}
	if *count > 0 {
		values.Set("print_count", strconv.Itoa(*count))
	}
	if *cutOnce {
		values.Set("cut_once", "1")
	}
	err := withSpinner("Printing "+name, func() error {
		return c.printSaved(ctx, name, values)
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, successStyle.Render("✓ Printed "+name))
	return nil
}
