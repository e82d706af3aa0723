// Package panel is the interactive terminal control surface: it issues
// commands to the manager and renders its state and event stream.
package panel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/sync/errgroup"

	"llmctl/internal/config"
	"llmctl/internal/manager"
	"llmctl/internal/observer"
	"llmctl/internal/registry"
	"llmctl/pkg/types"
)

const maxLogLines = 500

// Controller is the command surface the panel drives. *manager.Manager
// implements it.
type Controller interface {
	StartServer() (*manager.Task, error)
	StopServer() (*manager.Task, error)
	LoadModel() (*manager.Task, error)
	UnloadModel() (*manager.Task, error)
	SelectModel(path string) (*manager.Task, error)
	SetGPULayers(n int) error
	Snapshot() manager.Snapshot
	Config() config.Config
}

// Panel is the single mutable state struct of the control surface. Widget
// state is only touched on the tview event goroutine.
type Panel struct {
	ctl    Controller
	events observer.Drainer
	screen tcell.Screen

	app       *tview.Application
	root      *tview.Flex
	statusBar *tview.TextView
	form      *tview.Form
	pathField *tview.InputField
	gpuField  *tview.InputField
	modelList *tview.List
	logView   *tview.TextView

	state  observer.State
	models []types.Model
}

// New builds the panel. modelsDir, when non-empty, populates the model
// picker with its *.gguf files.
func New(ctl Controller, events observer.Drainer, modelsDir string) *Panel {
	p := &Panel{ctl: ctl, events: events, state: observer.State{MaxLines: maxLogLines}}
	p.app = tview.NewApplication()
	cfg := ctl.Config()

	p.statusBar = tview.NewTextView().SetDynamicColors(true)
	p.logView = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetWordWrap(true)
	p.logView.SetBorder(true).SetTitle(" Logs ")

	p.pathField = tview.NewInputField().
		SetLabel("Model path ").
		SetText(cfg.Model.ModelPath).
		SetFieldWidth(0)
	p.pathField.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			p.selectModel(p.pathField.GetText())
		}
	})
	p.gpuField = tview.NewInputField().
		SetLabel("GPU layers ").
		SetText(strconv.Itoa(cfg.Model.NGPULayers)).
		SetFieldWidth(6).
		SetAcceptanceFunc(tview.InputFieldInteger)
	p.gpuField.SetChangedFunc(p.gpuChanged)

	p.form = tview.NewForm().
		AddFormItem(p.pathField).
		AddFormItem(p.gpuField).
		AddButton("Start Server", p.toggleServer).
		AddButton("Load Model", p.toggleModel).
		AddButton("Quit", p.app.Stop)
	p.form.SetBorder(true).SetTitle(" llmctl ")

	p.modelList = tview.NewList().ShowSecondaryText(true)
	p.modelList.SetBorder(true).SetTitle(" Models ")
	if modelsDir != "" {
		p.setModels(modelsDir)
	}

	top := tview.NewFlex().
		AddItem(p.form, 0, 2, true).
		AddItem(p.modelList, 0, 1, false)
	p.root = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 9, 0, true).
		AddItem(p.logView, 0, 1, false).
		AddItem(p.statusBar, 1, 0, false)

	p.app.SetInputCapture(p.handleKey)
	p.refresh()
	return p
}

// SetScreen replaces the terminal screen, e.g. with a simulation screen.
func (p *Panel) SetScreen(s tcell.Screen) { p.screen = s }

// Run shows the panel and drains events until the user quits or ctx is done.
func (p *Panel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	loop := &observer.Loop{
		Source:   p.events,
		Interval: observer.DefaultInterval,
		Handle: func(evs []manager.Event) {
			if gctx.Err() != nil {
				return
			}
			p.app.QueueUpdateDraw(func() { p.apply(evs) })
		},
		Tick: func() {
			if gctx.Err() != nil {
				return
			}
			p.app.QueueUpdateDraw(p.refresh)
		},
	}
	if p.screen != nil {
		p.app.SetScreen(p.screen)
	}
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		p.app.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return p.app.SetRoot(p.root, true).EnableMouse(true).Run()
	})
	return g.Wait()
}

// apply folds drained events into the log view and the GPU-layer ceiling.
func (p *Panel) apply(evs []manager.Event) {
	p.state.Apply(evs)
	p.logView.SetText(strings.Join(p.state.Lines, "\n"))
	p.logView.ScrollToEnd()
	if p.state.MaxLayers > 0 {
		p.gpuField.SetLabel(fmt.Sprintf("GPU layers (0-%d) ", p.state.MaxLayers))
	}
	p.refresh()
}

// refresh re-renders the widgets derived from the controller snapshot.
func (p *Panel) refresh() {
	p.clampGPUField()
	s := p.ctl.Snapshot()
	server := s.Server.String()
	if s.Addr != "" {
		server += " (" + s.Addr + ")"
	}
	model := s.Model.String()
	if s.ModelPath != "" {
		model += " " + s.ModelPath
	}
	line := fmt.Sprintf(" Server: [yellow]%s[-]  Model: [yellow]%s[-]", server, tview.Escape(model))
	if s.GPUPending {
		line += "  [gray](GPU layers not saved yet)[-]"
	}
	if s.Inflight > 0 || s.Queued > 0 {
		line += fmt.Sprintf("  In-flight: %d  Queued: %d", s.Inflight, s.Queued)
	}
	p.statusBar.SetText(line)

	p.setButton(0, serverLabel(s.Server))
	p.setButton(1, modelLabel(s.Model))
}

func (p *Panel) setButton(i int, label string) {
	if b := p.form.GetButton(i); b != nil && b.GetLabel() != label {
		b.SetLabel(label)
	}
}

func serverLabel(s manager.ServerState) string {
	switch s {
	case manager.ServerRunning:
		return "Stop Server"
	case manager.ServerStarting:
		return "Starting..."
	case manager.ServerStopping:
		return "Stopping..."
	default:
		return "Start Server"
	}
}

func modelLabel(s manager.ModelState) string {
	switch s {
	case manager.ModelLoaded:
		return "Unload Model"
	case manager.ModelLoading:
		return "Loading..."
	case manager.ModelUnloading:
		return "Unloading..."
	default:
		return "Load Model"
	}
}

// Command handlers. Rejections are reported by the manager as Log events.

func (p *Panel) toggleServer() {
	if p.ctl.Snapshot().Server == manager.ServerRunning {
		_, _ = p.ctl.StopServer()
	} else {
		_, _ = p.ctl.StartServer()
	}
	p.refresh()
}

func (p *Panel) toggleModel() {
	if p.ctl.Snapshot().Model == manager.ModelLoaded {
		_, _ = p.ctl.UnloadModel()
	} else {
		_, _ = p.ctl.LoadModel()
	}
	p.refresh()
}

func (p *Panel) selectModel(path string) {
	path = strings.TrimSpace(path)
	if path == "" {
		return
	}
	if _, err := p.ctl.SelectModel(path); err == nil {
		p.pathField.SetText(path)
	}
}

func (p *Panel) gpuChanged(text string) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return
	}
	_ = p.ctl.SetGPULayers(p.state.ClampLayers(n))
}

// clampGPUField writes the clamped GPU-layer value back into the field. It
// runs from refresh, never from the field's own changed callback.
func (p *Panel) clampGPUField() {
	n, err := strconv.Atoi(p.gpuField.GetText())
	if err != nil {
		return
	}
	if c := p.state.ClampLayers(n); c != n {
		p.gpuField.SetText(strconv.Itoa(c))
	}
}

func (p *Panel) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	// Bracket keys step GPU layers unless a text field has focus.
	if _, typing := p.app.GetFocus().(*tview.InputField); typing {
		return ev
	}
	switch ev.Rune() {
	case '[':
		p.stepGPU(-1)
		return nil
	case ']':
		p.stepGPU(1)
		return nil
	}
	return ev
}

func (p *Panel) stepGPU(delta int) {
	n, _ := strconv.Atoi(p.gpuField.GetText())
	n = p.state.ClampLayers(n + delta)
	p.gpuField.SetText(strconv.Itoa(n))
}

func (p *Panel) setModels(dir string) {
	models, err := registry.LoadDir(dir)
	if err != nil {
		p.state.Apply([]manager.Event{manager.LogEvent(manager.LevelWarn, "Could not list models: "+err.Error())})
		p.logView.SetText(strings.Join(p.state.Lines, "\n"))
		return
	}
	p.models = models
	p.modelList.Clear()
	for _, m := range models {
		path := m.Path
		p.modelList.AddItem(m.Name, path, 0, func() { p.selectModel(path) })
	}
}
