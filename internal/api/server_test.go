package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereceipt/label-designer/internal/config"
	"github.com/thereceipt/label-designer/internal/designer"
	"github.com/thereceipt/label-designer/internal/fonts"
	"github.com/thereceipt/label-designer/internal/metrics"
	"github.com/thereceipt/label-designer/internal/power"
	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/internal/repository"
	"go.uber.org/zap"
)

const helloText = `[{"text":"Hello {{counter}}","size":40,"align":"center"}]`

type fixture struct {
	server  *Server
	journal *printer.Journal
	repo    *repository.Store
}

func newFixture(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.FromEnv(func(string) string { return "" })
	require.NoError(t, err)
	cfg.PrintRateLimit = 0

	resolver, err := fonts.NewResolver(fonts.Options{Builtin: true}, nil)
	require.NoError(t, err)
	repo, err := repository.New(t.TempDir(), nil)
	require.NoError(t, err)
	journal := printer.NewJournal(10)

	deps := Deps{
		Config:     cfg,
		Fonts:      resolver,
		Factory:    designer.NewFactory(resolver, fonts.NewCache(fonts.NewOpenTypeLoader(), nil), repo, nil),
		Printer:    designer.PrinterSettings{Device: "simulation", Model: "QL-800", Simulation: true, Journal: journal},
		Scanner:    printer.NewScanner(printer.ScannerConfig{Device: "simulation", Model: "QL-800"}, nil, nil),
		Repository: repo,
		Metrics:    metrics.New(),
		Log:        zap.NewNop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &fixture{server: NewServer(deps), journal: journal, repo: repo}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "labeldesigner_http_requests_total")
}

func TestConfig(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/labeldesigner/api/config", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "62", body["default_label_size"])
	assert.EqualValues(t, 600, body["default_dpi"])
	assert.Equal(t, false, body["red_support"])
	assert.Contains(t, body["fonts"], "Go")
	sizes := body["label_sizes"].([]any)
	assert.NotEmpty(t, sizes)
}

func TestPreview_Formats(t *testing.T) {
	f := newFixture(t, nil)
	values := url.Values{"label_size": {"62"}, "text": {helloText}}

	w := f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", values))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	values.Set("return_format", "base64")
	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", values))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	raw, err := base64.StdEncoding.DecodeString(w.Body.String())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))

	values.Set("return_format", "pdf")
	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", values))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestPreview_JSONBody(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(jsonRequest(http.MethodPost, "/labeldesigner/api/preview", map[string]any{
		"label_size": "62x29",
		"text":       helloText,
	}))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPreview_Errors(t *testing.T) {
	f := newFixture(t, nil)

	long := `[{"text":"` + strings.Repeat("x", 10001) + `","size":20}]`
	w := f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", url.Values{"text": {long}}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", url.Values{"label_size": {"999"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "unknown label_size")

	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", url.Values{"text": {"not json"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreview_Upload(t *testing.T) {
	f := newFixture(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("print_type", "image")
	_ = mw.WriteField("image_mode", "bw")
	part, err := mw.CreateFormFile("image", "doc.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/labeldesigner/api/preview", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["message"], "PDF")
}

func TestPrint(t *testing.T) {
	f := newFixture(t, nil)
	values := url.Values{"text": {helloText}, "print_count": {"2"}, "cut_once": {"1"}}

	w := f.do(formRequest(http.MethodPost, "/labeldesigner/api/print", values))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	jobs := f.journal.All()
	require.Len(t, jobs, 1)
	assert.Equal(t, 2, jobs[0].Labels)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["jobs"], 1)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/job/"+jobs[0].ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, printer.JobCompleted, decode(t, w)["status"])

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/job/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrint_Failures(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Printer.Device = "?"
		d.Printer.Simulation = false
	})

	w := f.do(formRequest(http.MethodPost, "/labeldesigner/api/print", url.Values{"text": {helloText}}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, printer.StatusNoPrinter, body["message"])

	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/print", url.Values{"print_count": {"0"}}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "print_count must be greater than 0", decode(t, w)["message"])
}

func TestPrint_RateLimited(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Config.PrintRateLimit = 0.001
		d.Config.PrintRateBurst = 1
	})
	values := url.Values{"text": {helloText}}

	w := f.do(formRequest(http.MethodPost, "/labeldesigner/api/print", values))
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/print", values))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = f.do(formRequest(http.MethodPost, "/labeldesigner/api/preview", values))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBarcodes(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/labeldesigner/api/barcodes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	codes := decode(t, w)["barcodes"].([]any)
	require.GreaterOrEqual(t, len(codes), 2)
	assert.Equal(t, "CODE128", codes[0])
	assert.Equal(t, "QR", codes[1])
}

func TestPrinterStatus(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/labeldesigner/api/printer_status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "simulation", body["selected"])
	assert.Equal(t, "Simulator", body["status_type"])
	assert.Equal(t, true, body["red_support"])

	w = f.do(httptest.NewRequest(http.MethodPost, "/labeldesigner/api/printer_rescan", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRepositoryFlow(t *testing.T) {
	f := newFixture(t, nil)
	base := "/labeldesigner/api/repository"

	w := f.do(jsonRequest(http.MethodPost, base+"/save", map[string]any{"label_size": "62"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No name provided", decode(t, w)["message"])

	w = f.do(jsonRequest(http.MethodPost, base+"/save", map[string]any{
		"name":       "Name Badge",
		"label_size": "62x29",
		"text":       helloText,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Name_Badge.json", decode(t, w)["name"])

	w = f.do(httptest.NewRequest(http.MethodGet, base+"/list", nil))
	require.Equal(t, http.StatusOK, w.Code)
	files := decode(t, w)["files"].([]any)
	require.Len(t, files, 1)
	assert.Equal(t, "62mm x 29mm die-cut", files[0].(map[string]any)["label_size"])

	w = f.do(httptest.NewRequest(http.MethodGet, base+"/load?name=Name_Badge.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.IsType(t, "", decode(t, w)["text"])

	w = f.do(httptest.NewRequest(http.MethodGet, base+"/preview?name=Name_Badge.json", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = f.do(formRequest(http.MethodPost, base+"/print", url.Values{"name": {"Name_Badge.json"}, "print_count": {"3"}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, f.journal.All()[0].Labels)

	w = f.do(jsonRequest(http.MethodPost, base+"/delete", map[string]any{"name": "Name_Badge.json"}))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, base+"/load?name=Name_Badge.json", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(httptest.NewRequest(http.MethodGet, base+"/load", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPower(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/printer_power/status", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Home Assistant not configured"}`, w.Body.String())

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Write([]byte(`{"state":"off"}`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	f = newFixture(t, func(d *Deps) {
		d.Power = power.NewClient(power.Config{URL: upstream.URL, Token: "t", EntityID: "switch.ql"}, upstream.Client(), nil)
	})
	w = f.do(httptest.NewRequest(http.MethodGet, "/api/printer_power/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"off"}`, w.Body.String())

	w = f.do(httptest.NewRequest(http.MethodPost, "/api/printer_power/toggle", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":"success"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(httptest.NewRequest(http.MethodOptions, "/labeldesigner/api/print", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_PrintAndEvents(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.server.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": EventPrint,
		"data":  map[string]any{"label_size": "62", "text": helloText},
	}))

	seen := map[string]WSMessage{}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for len(seen) < 2 {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		seen[msg.Event] = msg
	}
	require.Contains(t, seen, EventJobFinished)
	require.Contains(t, seen, EventResponse)
	assert.JSONEq(t, `{"success":true}`, string(seen[EventResponse].Data))

	f.server.Hub().BroadcastPrinterRemoved("file:///dev/usb/lp0")
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventPrinterRemoved, msg.Event)
	assert.JSONEq(t, `{"path":"file:///dev/usb/lp0"}`, string(msg.Data))

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "dance"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventError, msg.Event)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	return conn
}

func printOverWS(t *testing.T, conn *websocket.Conn, text string) WSMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": EventPrint,
		"data":  map[string]any{"label_size": "62", "text": text},
	}))
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Event == EventResponse || msg.Event == EventError {
			return msg
		}
	}
}

func TestWebSocket_OversizedRandomToken(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()
	conn := dialWS(t, srv)
	defer conn.Close()

	msg := printOverWS(t, conn, `[{"text":"{{random:99999999999999999999}}","size":20}]`)
	assert.Equal(t, EventResponse, msg.Event)
	assert.JSONEq(t, `{"success":true}`, string(msg.Data))

	// the connection survives and keeps serving
	msg = printOverWS(t, conn, helloText)
	assert.JSONEq(t, `{"success":true}`, string(msg.Data))
}

func TestWebSocket_RateLimitSurvivesReconnect(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Config.PrintRateLimit = 0.001
		d.Config.PrintRateBurst = 1
	})
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	first := dialWS(t, srv)
	msg := printOverWS(t, first, helloText)
	assert.Equal(t, EventResponse, msg.Event)
	first.Close()

	second := dialWS(t, srv)
	defer second.Close()
	msg = printOverWS(t, second, helloText)
	assert.Equal(t, EventError, msg.Event)
	assert.Contains(t, string(msg.Data), "too many print requests")
}

func TestRemoteHost(t *testing.T) {
	assert.Equal(t, "127.0.0.1", remoteHost(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 51234}))
	assert.Equal(t, "::1", remoteHost(&net.TCPAddr{IP: net.IPv6loopback, Port: 9}))
	assert.Equal(t, "/tmp/sock", remoteHost(&net.UnixAddr{Name: "/tmp/sock", Net: "unix"}))
}

func TestWebSocket_HandlerPanicKeepsServerUp(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Factory = nil })
	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()
	conn := dialWS(t, srv)
	defer conn.Close()

	msg := printOverWS(t, conn, helloText)
	assert.Equal(t, EventError, msg.Event)
	assert.JSONEq(t, `{"error":"internal error"}`, string(msg.Data))

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "dance"}))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventError, msg.Event)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
