package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/nutrition"
)

// Key bindings.
const (
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
	keyEnter  = "enter"
	keyEsc    = "esc"
	keyTupper = "t"
	keyType   = "y"
	keyWeight = "w"
	keyStage  = "a"
	keyCommit = "c"
	keyReset  = "R"
	keyDelete = "d"
)

const (
	trackerTableHeight = 10
	colWidthKind       = 8
	colWidthName       = 24
	colWidthMass       = 9
	colWidthKcal       = 9
)

// Tracker is the ledger surface the tracker drives.
type Tracker interface {
	Stage(ctx context.Context, kind nutrition.ItemKind, refID string, massG float64) (ledger.Item, bool, error)
	Unstage(ctx context.Context, key string) (bool, error)
	Commit(ctx context.Context, sel ledger.Selection) (bool, error)
	RemoveConsumed(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context) error
	Entries() []ledger.Entry
	GoalProgress(goal nutrition.NutrientProfile, sel ledger.Selection) nutrition.GoalProgress
}

// Reference is the catalog surface the tracker reads.
type Reference interface {
	Tuppers() []nutrition.Tupper
	TupperTypes() []nutrition.TupperType
	Goal() nutrition.DailyGoal
	Find(collection, query string) (nutrition.Entity, error)
}

// ClearSignal carries the ledger's clear hook into the tracker. Pass Hook to
// ledger.WithClearHook; the tracker empties its weight field when it fires.
type ClearSignal struct {
	fired atomic.Bool
}

// Hook marks the weight entry for clearing.
func (s *ClearSignal) Hook() { s.fired.Store(true) }

func (s *ClearSignal) take() bool {
	return s != nil && s.fired.Swap(false)
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeWeight
	modeStage
)

// actionDoneMsg reports the end of a ledger call.
type actionDoneMsg struct {
	op      string
	applied bool
	err     error
}

// TrackerModel is the interactive tracker screen. Ledger calls run as
// commands; while one is in flight every further action is refused.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type TrackerModel struct {
	ctx    context.Context
	ledger Tracker
	ref    Reference
	clear  *ClearSignal
	format Formatter

	tuppers   []nutrition.Tupper
	types     []nutrition.TupperType
	tupperIdx int
	typeIdx   int

	mode    inputMode
	weight  textinput.Model
	stage   textinput.Model
	table   table.Model
	entries []ledger.Entry

	busy         bool
	confirmReset bool
	status       string
	err          error
	quit         bool
}

func newTextInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 64
	return ti
}

// NewTrackerModel builds the tracker over a loaded ledger.
func NewTrackerModel(ctx context.Context, l Tracker, ref Reference, clear *ClearSignal, f Formatter) TrackerModel {
	m := TrackerModel{
		ctx:     ctx,
		ledger:  l,
		ref:     ref,
		clear:   clear,
		format:  f,
		tuppers: ref.Tuppers(),
		types:   ref.TupperTypes(),
		weight:  newTextInput("gross weight (g)"),
		stage:   newTextInput("<food> <grams>"),
	}
	m.table = table.New(
		table.WithColumns([]table.Column{
			{Title: "Kind", Width: colWidthKind},
			{Title: "Name", Width: colWidthName},
			{Title: "Mass", Width: colWidthMass},
			{Title: "Kcal", Width: colWidthKcal},
			{Title: "", Width: colWidthKind},
		}),
		table.WithFocused(true),
		table.WithHeight(trackerTableHeight),
	)
	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	m.table.SetStyles(s)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m TrackerModel) Init() tea.Cmd {
	return nil
}

// Selection returns the current container selection.
func (m TrackerModel) Selection() ledger.Selection {
	sel := ledger.Selection{}
	if m.tupperIdx < len(m.tuppers) {
		sel.TupperID = m.tuppers[m.tupperIdx].ID
	}
	if m.typeIdx < len(m.types) {
		sel.TupperTypeID = m.types[m.typeIdx].ID
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(m.weight.Value()), 64); err == nil {
		sel.GrossWeightG = v
	}
	return sel
}

// Busy reports whether a ledger call is in flight.
func (m TrackerModel) Busy() bool { return m.busy }

func (m *TrackerModel) refresh() {
	m.entries = m.ledger.Entries()
	rows := make([]table.Row, 0, len(m.entries))
	for _, e := range m.entries {
		state := ""
		if e.Staged {
			state = "staged"
		}
		rows = append(rows, table.Row{
			string(e.Kind), e.Name, m.format.Grams(e.MassG), m.format.Number(e.Macros.Kcal), state,
		})
	}
	m.table.SetRows(rows)
}

// Update implements tea.Model.
func (m TrackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if done, ok := msg.(actionDoneMsg); ok {
		return m.handleDone(done), nil
	}
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if keyMsg.String() == keyCtrlC {
		m.quit = true
		return m, tea.Quit
	}

	if m.mode == modeBrowse {
		return m.handleBrowseKey(keyMsg)
	}
	return m.handleInput(keyMsg)
}

func (m TrackerModel) handleDone(done actionDoneMsg) TrackerModel {
	m.busy = false
	m.err = done.err
	switch {
	case done.err != nil:
		m.status = ""
	case !done.applied:
		m.status = done.op + ": nothing to do"
	default:
		m.status = done.op + ": done"
	}
	if m.clear.take() {
		m.weight.SetValue("")
	}
	m.refresh()
	return m
}

func (m TrackerModel) handleInput(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	input := &m.weight
	if m.mode == modeStage {
		input = &m.stage
	}
	switch keyMsg.String() {
	case keyEsc:
		input.Blur()
		m.mode = modeBrowse
		return m, nil
	case keyEnter:
		input.Blur()
		mode := m.mode
		m.mode = modeBrowse
		if mode == modeStage {
			return m.startStage()
		}
		return m, nil
	}
	var cmd tea.Cmd
	*input, cmd = input.Update(keyMsg)
	return m, cmd
}

func (m TrackerModel) handleBrowseKey(keyMsg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmReset && keyMsg.String() != keyReset {
		m.confirmReset = false
		m.status = "reset cancelled"
	}
	switch keyMsg.String() {
	case keyQuit:
		m.quit = true
		return m, tea.Quit
	case keyTupper:
		if len(m.tuppers) > 0 {
			m.tupperIdx = (m.tupperIdx + 1) % len(m.tuppers)
		}
		return m, nil
	case keyType:
		if len(m.types) > 0 {
			m.typeIdx = (m.typeIdx + 1) % len(m.types)
		}
		return m, nil
	case keyWeight:
		m.mode = modeWeight
		m.weight.Focus()
		return m, textinput.Blink
	case keyStage:
		m.mode = modeStage
		m.stage.SetValue("")
		m.stage.Focus()
		return m, textinput.Blink
	case keyCommit:
		sel := m.Selection()
		return m.run("consume", func(ctx context.Context) (bool, error) {
			return m.ledger.Commit(ctx, sel)
		})
	case keyReset:
		if !m.confirmReset {
			m.confirmReset = true
			m.err = nil
			m.status = "press R again to reset today's progress"
			return m, nil
		}
		m.confirmReset = false
		return m.run("reset", func(ctx context.Context) (bool, error) {
			return true, m.ledger.Reset(ctx)
		})
	case keyDelete:
		return m.startDelete()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(keyMsg)
	return m, cmd
}

// run starts a ledger call unless one is already in flight.
func (m TrackerModel) run(op string, fn func(ctx context.Context) (bool, error)) (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "busy, wait for the previous action"
		return m, nil
	}
	m.busy = true
	m.err = nil
	m.status = op + "..."
	ctx := m.ctx
	return m, func() tea.Msg {
		applied, err := fn(ctx)
		return actionDoneMsg{op: op, applied: applied, err: err}
	}
}

// parseStageInput splits "<food name or id> <grams>"; the grams are
// optional for standard foods.
func parseStageInput(s string) (string, float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", 0, errors.New("enter a food and a mass")
	}
	last := fields[len(fields)-1]
	if v, err := strconv.ParseFloat(last, 64); err == nil && len(fields) > 1 {
		return strings.Join(fields[:len(fields)-1], " "), v, nil
	}
	return strings.Join(fields, " "), 0, nil
}

func (m TrackerModel) startStage() (tea.Model, tea.Cmd) {
	query, mass, err := parseStageInput(m.stage.Value())
	if err != nil {
		m.err = err
		return m, nil
	}
	kind := nutrition.KindFood
	e, err := m.ref.Find(nutrition.CollectionFoods, query)
	if err != nil {
		kind = nutrition.KindStandardFood
		if e, err = m.ref.Find(nutrition.CollectionStandardFoods, query); err != nil {
			m.err = fmt.Errorf("no food or standard food %q", query)
			return m, nil
		}
	}
	id := e.EntityID()
	return m.run("stage", func(ctx context.Context) (bool, error) {
		_, ok, stageErr := m.ledger.Stage(ctx, kind, id, mass)
		return ok, stageErr
	})
}

func (m TrackerModel) startDelete() (tea.Model, tea.Cmd) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return m, nil
	}
	e := m.entries[i]
	if e.Staged {
		return m.run("unstage", func(ctx context.Context) (bool, error) {
			return m.ledger.Unstage(ctx, e.Key)
		})
	}
	return m.run("remove", func(ctx context.Context) (bool, error) {
		return m.ledger.RemoveConsumed(ctx, e.Key)
	})
}

// View implements tea.Model.
func (m TrackerModel) View() string {
	if m.quit {
		return ""
	}
	var b strings.Builder
	sel := m.Selection()
	b.WriteString(RenderProgress(m.ledger.GoalProgress(m.ref.Goal().NutrientProfile, sel), m.format))
	b.WriteString("\n\n")

	tupper, tupperType := "none", "none"
	if m.tupperIdx < len(m.tuppers) {
		tupper = m.tuppers[m.tupperIdx].Name
	}
	if m.typeIdx < len(m.types) {
		tupperType = fmt.Sprintf("%s (%s)", m.types[m.typeIdx].Name, m.format.Grams(m.types[m.typeIdx].TareWeightG))
	}
	b.WriteString(LabelStyle.Render("Tupper: "))
	b.WriteString(ValueStyle.Render(tupper))
	b.WriteString(LabelStyle.Render("   Type: "))
	b.WriteString(ValueStyle.Render(tupperType))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Weight: "))
	b.WriteString(m.weight.View())
	b.WriteString("\n")
	if m.mode == modeStage {
		b.WriteString(LabelStyle.Render("Add: "))
		b.WriteString(m.stage.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(ErrorStyle.Render("Error: " + m.err.Error()))
	case m.status != "":
		b.WriteString(InfoStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render("t tupper  y type  w weight  a add  c consume  d delete  R reset  q quit"))
	return b.String()
}
