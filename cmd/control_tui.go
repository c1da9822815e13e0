// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stagewire/fermata/pkg/amp"
	"github.com/stagewire/fermata/pkg/pickup"
	"github.com/stagewire/fermata/pkg/roland"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusParamList = iota
	focusValueInput
)

const pedalBarWidth = 32

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// ampParameter is one panel control in the editor
type ampParameter struct {
	name    string
	address roland.Address
}

// ampParameters is the panel map of the supported amplifier family. The
// tone block starts at 60 00 04 10 and runs one byte per knob.
var ampParameters = []ampParameter{
	{name: "Volume", address: roland.Address{0x60, 0x00, 0x04, 0x10}},
	{name: "Gain", address: roland.Address{0x60, 0x00, 0x04, 0x11}},
	{name: "Bass", address: roland.Address{0x60, 0x00, 0x04, 0x12}},
	{name: "Middle", address: roland.Address{0x60, 0x00, 0x04, 0x13}},
	{name: "Treble", address: roland.Address{0x60, 0x00, 0x04, 0x14}},
	{name: "Presence", address: roland.Address{0x60, 0x00, 0x04, 0x15}},
	{name: "Reverb", address: roland.Address{0x60, 0x00, 0x04, 0x16}},
	{name: "Delay Level", address: roland.Address{0x60, 0x00, 0x05, 0x10}},
}

// paramState is the last known value of one parameter
type paramState struct {
	value   int
	known   bool
	source  string // "set", "requested" or "external"
	updated time.Time
}

// paramItem pairs a parameter with its state for the list display
type paramItem struct {
	param ampParameter
	state paramState
	bound bool
}

// Implement list.Item interface
func (p paramItem) Title() string {
	if p.bound {
		return p.param.name + " *"
	}
	return p.param.name
}

func (p paramItem) Description() string {
	if !p.state.known {
		return fmt.Sprintf("%s  --", p.param.address)
	}
	return fmt.Sprintf("%s  %3d (%s)", p.param.address, p.state.value, p.state.source)
}

func (p paramItem) FilterValue() string { return p.param.name }

// eventLogEntry is one line of the on-screen event log
type eventLogEntry struct {
	timestamp time.Time
	severity  amp.Severity
	message   string
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	// Session manager (for sending commands and reconnection)
	cm       *sessionManager
	connInfo string

	// Parameter tracking
	values    map[string]paramState // keyed by address string
	boundKey  string                // address string of the pedal-bound parameter
	paramList list.Model

	// Control
	valueInput   textinput.Model
	focusedField int

	// Pedal state
	pedalConnected bool
	pedalName      string
	pedalPosition  int
	guard          pickup.State

	// Monitoring
	stats         amp.Stats
	eventLog      []eventLogEntry
	maxLogEntries int

	// UI state
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type controlBatchMsg struct {
	updates []amp.Update
	logs    []amp.LogEvent
}

type controlConnLostMsg struct{}

type controlReconnectedMsg struct {
	connInfo string
}

type pedalMovedMsg struct {
	position int
}

type pedalLostMsg struct{}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(cm *sessionManager, connInfo string) controlModel {
	// Initialize text input for parameter values
	ti := textinput.New()
	ti.Placeholder = "0-127"
	ti.CharLimit = 3
	ti.Width = 6

	// Initialize parameter list
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	paramList := list.New([]list.Item{}, delegate, 34, 12)
	paramList.Title = "Parameters"
	paramList.SetShowStatusBar(false)
	paramList.SetShowHelp(false)
	paramList.SetFilteringEnabled(false)

	m := controlModel{
		cm:            cm,
		connInfo:      connInfo,
		values:        make(map[string]paramState),
		paramList:     paramList,
		valueInput:    ti,
		focusedField:  focusParamList,
		pedalPosition: -1,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
	m.updateParamList()
	return m
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		// Pull fresh snapshots from the manager
		m.stats = m.cm.sessionStats()
		m.stats.CalculateRates()
		m.pedalConnected, m.pedalName, m.pedalPosition = m.cm.pedalStatus()
		m.guard = m.cm.pickupState()
		return m, controlTickCmd()

	case controlBatchMsg:
		for _, u := range msg.updates {
			m.processUpdate(u)
		}
		for _, e := range msg.logs {
			m.addLogEntry(e.Severity, e.Message)
		}
		m.updateParamList()

	case controlConnLostMsg:
		m.connectionLost = true
		m.addLogEntry(amp.SeverityError, "Connection lost - reconnecting...")

	case controlReconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry(amp.SeveritySuccess, "Reconnected - refreshing parameters")

	case pedalMovedMsg:
		m.pedalPosition = msg.position
		m.guard = m.cm.pickupState()

	case pedalLostMsg:
		m.pedalConnected = false
		m.boundKey = ""
		m.addLogEntry(amp.SeverityWarning, "Expression pedal disconnected")
		m.updateParamList()
	}

	// Update child components
	var cmd tea.Cmd
	if m.focusedField == focusValueInput {
		m.valueInput, cmd = m.valueInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedField == focusParamList {
		m.paramList, cmd = m.paramList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.focusedField == focusValueInput && msg.String() == "q" {
			break // let the input take the character
		}
		m.quitting = true
		return m, tea.Quit

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "esc":
		if m.focusedField == focusValueInput {
			m.valueInput.Blur()
			m.focusedField = focusParamList
		}
		return m, nil

	case "enter":
		return m.handleEnter()

	case "up", "k", "down", "j":
		if m.focusedField == focusParamList {
			m.paramList, _ = m.paramList.Update(msg)
			return m, nil
		}

	case "right", "l":
		if m.focusedField == focusParamList {
			m.nudgeSelected(1)
			return m, nil
		}

	case "left", "h":
		if m.focusedField == focusParamList {
			m.nudgeSelected(-1)
			return m, nil
		}

	case "r":
		if m.focusedField == focusParamList {
			m.rereadSelected()
			return m, nil
		}

	case "x":
		if m.focusedField == focusParamList {
			m.bindSelected()
			return m, nil
		}

	case "X":
		if m.focusedField == focusParamList {
			m.unbind()
			return m, nil
		}
	}

	// Pass through to focused component
	if m.focusedField == focusValueInput {
		var cmd tea.Cmd
		m.valueInput, cmd = m.valueInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *controlModel) cycleFocus(delta int) *controlModel {
	maxFocus := focusValueInput
	m.focusedField = (m.focusedField + delta + maxFocus + 1) % (maxFocus + 1)

	if m.focusedField == focusValueInput {
		// Prefill with the current value so enter is a no-op edit
		if param := m.getSelectedParam(); param != nil {
			if state, ok := m.values[param.address.String()]; ok && state.known {
				m.valueInput.SetValue(strconv.Itoa(state.value))
			} else {
				m.valueInput.SetValue("")
			}
		}
		m.valueInput.Focus()
	} else {
		m.valueInput.Blur()
	}

	return m
}

func (m *controlModel) handleEnter() (tea.Model, tea.Cmd) {
	// Don't allow writes while the connection is down
	if m.connectionLost {
		m.addLogEntry(amp.SeverityError, "Cannot send command: connection lost")
		return m, nil
	}

	switch m.focusedField {
	case focusParamList:
		// Jump into the value editor for the selected parameter
		return m.cycleFocus(1), nil

	case focusValueInput:
		return m.applyValueInput()
	}

	return m, nil
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	// Header
	helpText := "q=quit Tab=edit r=read x=bind X=release arrows=nudge"
	s.WriteString(titleStyle.Render("FERMATA CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s", connStatus, helpText)))
	s.WriteString("\n\n")

	// Layout: left panel (parameters) | right panel (editor)
	leftWidth := 36
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 20 {
		rightWidth = 20
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusParamList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	paramPanel := listStyle.Render(m.paramList.View())

	editorContent := m.renderEditorPanel(statsLabelStyle, statsValueStyle, headerStyle, warningStyle)
	editorStyle := boxStyle.Width(rightWidth)
	if m.focusedField == focusValueInput {
		editorStyle = focusedBoxStyle.Width(rightWidth)
	}
	editorPanel := editorStyle.Render(editorContent)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, paramPanel, " ", editorPanel))
	s.WriteString("\n\n")

	// Pedal bar
	s.WriteString(m.renderPedalBar(statsLabelStyle, statsValueStyle, warningStyle, headerStyle, boxStyle))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderEditorPanel(statsLabelStyle, statsValueStyle, headerStyle, warningStyle lipgloss.Style) string {
	var s strings.Builder

	param := m.getSelectedParam()
	if param == nil {
		s.WriteString(headerStyle.Render("No parameter selected"))
		return s.String()
	}

	key := param.address.String()
	state := m.values[key]

	// Selected parameter info
	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Selected:"), param.name))
	s.WriteString(fmt.Sprintf("%s %s\n\n", statsLabelStyle.Render("Address:"), param.address))

	if state.known {
		s.WriteString(fmt.Sprintf("%s %s  %s\n\n",
			statsLabelStyle.Render("Value:"),
			statsValueStyle.Render(fmt.Sprintf("%3d", state.value)),
			headerStyle.Render(fmt.Sprintf("(%s %s)", state.source, state.updated.Format("15:04:05")))))
	} else {
		s.WriteString(fmt.Sprintf("%s %s\n\n",
			statsLabelStyle.Render("Value:"),
			headerStyle.Render("unknown (waiting for read)")))
	}

	// Value entry
	s.WriteString(statsLabelStyle.Render("Set value: "))
	if m.focusedField == focusValueInput {
		s.WriteString(m.valueInput.View())
	} else {
		val := m.valueInput.Value()
		if val == "" {
			val = m.valueInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	// Pedal binding status for this parameter
	if m.boundKey == key {
		if m.guard.Active {
			s.WriteString(warningStyle.Render(fmt.Sprintf("pedal bound, pickup armed (target %d)", m.guard.Target)))
		} else {
			s.WriteString(statsValueStyle.Render("pedal bound, tracking"))
		}
	} else if m.boundKey != "" {
		s.WriteString(headerStyle.Render("pedal bound to another parameter"))
	} else {
		s.WriteString(headerStyle.Render("pedal unbound ('x' to bind)"))
	}

	return s.String()
}

func (m controlModel) renderPedalBar(statsLabelStyle, statsValueStyle, warningStyle, headerStyle, boxStyle lipgloss.Style) string {
	var content strings.Builder
	content.WriteString(statsLabelStyle.Render("PEDAL"))
	content.WriteString(" | ")

	if !m.pedalConnected {
		content.WriteString(headerStyle.Render("no expression pedal"))
		return boxStyle.Width(m.width - 4).Render(content.String())
	}

	pos := m.pedalPosition
	if pos < 0 {
		content.WriteString(fmt.Sprintf("%s  %s",
			statsValueStyle.Render(m.pedalName),
			headerStyle.Render("(no motion yet)")))
		return boxStyle.Width(m.width - 4).Render(content.String())
	}

	// Position gauge, with the pickup target marked while armed
	bar := make([]rune, pedalBarWidth)
	fill := pos * pedalBarWidth / roland.MaxValue
	for i := range bar {
		if i < fill {
			bar[i] = '#'
		} else {
			bar[i] = '-'
		}
	}
	if m.guard.Active {
		mark := m.guard.Target * pedalBarWidth / roland.MaxValue
		if mark >= pedalBarWidth {
			mark = pedalBarWidth - 1
		}
		bar[mark] = '|'
	}

	content.WriteString(fmt.Sprintf("%s [%s] %3d",
		statsValueStyle.Render(m.pedalName), string(bar), pos))

	if m.guard.Active {
		content.WriteString("  ")
		content.WriteString(warningStyle.Render(fmt.Sprintf("ARMED: sweep to %d to take over", m.guard.Target)))
	}

	return boxStyle.Width(m.width - 4).Render(content.String())
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	var requestedPercent float64
	if m.stats.MessagesDecoded > 0 {
		requestedPercent = float64(m.stats.RequestedUpdates) * 100.0 / float64(m.stats.MessagesDecoded)
	}
	errorCount := m.stats.ChecksumErrors + m.stats.StalledBuffers

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Msgs:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.MessagesDecoded)),
		statsLabelStyle.Render("Requested:"), statsValueStyle.Render(fmt.Sprintf("%.1f%%", requestedPercent)),
		statsLabelStyle.Render("Writes:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.WritesIssued)),
		statsLabelStyle.Render("Errors:"), func() string {
			if errorCount > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", errorCount))
			}
			return statsValueStyle.Render("0")
		}(),
		statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f msg/s", m.stats.MessageRate)),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	logHeight := 8
	if len(m.eventLog) < logHeight {
		logHeight = len(m.eventLog)
	}

	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			switch entry.severity {
			case amp.SeverityError:
				icon = "x"
				style = errorStyleLocal
			case amp.SeveritySuccess:
				icon = "+"
				style = successStyle
			case amp.SeverityInfo:
				icon = "i"
				style = headerStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

// processUpdate folds one classified device update into the panel state
func (m *controlModel) processUpdate(u amp.Update) {
	key := u.Address.String()
	m.values[key] = paramState{
		value:   int(u.Value),
		known:   true,
		source:  u.Origin.String(),
		updated: time.Now(),
	}

	// External changes are worth a log line; requested reads just fill
	// in the panel
	if u.Origin == amp.ExternalChange {
		name := key
		if param := findParameter(u.Address); param != nil {
			name = param.name
		}
		m.addLogEntry(amp.SeverityInfo, fmt.Sprintf("External change: %s = %d", name, u.Value))
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *controlModel) applyValueInput() (tea.Model, tea.Cmd) {
	param := m.getSelectedParam()
	if param == nil {
		return m, nil
	}

	valStr := m.valueInput.Value()
	if valStr == "" {
		m.valueInput.Blur()
		m.focusedField = focusParamList
		return m, nil
	}

	value, err := strconv.Atoi(valStr)
	if err != nil {
		m.addLogEntry(amp.SeverityError, fmt.Sprintf("Invalid value: %s", valStr))
		return m, nil
	}

	if value < 0 || value > roland.MaxValue {
		m.addLogEntry(amp.SeverityError, fmt.Sprintf("Value must be between 0 and %d", roland.MaxValue))
		return m, nil
	}

	m.cm.setParameter(param.address, byte(value))
	m.recordLocalSet(param.address, value)
	m.addLogEntry(amp.SeverityInfo, fmt.Sprintf("Set %s = %d", param.name, value))

	m.valueInput.Blur()
	m.focusedField = focusParamList
	m.updateParamList()
	return m, nil
}

// nudgeSelected moves the selected parameter by delta, clamped to range
func (m *controlModel) nudgeSelected(delta int) {
	if m.connectionLost {
		return
	}
	param := m.getSelectedParam()
	if param == nil {
		return
	}

	state, ok := m.values[param.address.String()]
	if !ok || !state.known {
		// No baseline yet; ask for one instead of writing blind
		m.cm.readParameter(param.address)
		return
	}

	value := state.value + delta
	if value < 0 {
		value = 0
	}
	if value > roland.MaxValue {
		value = roland.MaxValue
	}
	if value == state.value {
		return
	}

	m.cm.setParameter(param.address, byte(value))
	m.recordLocalSet(param.address, value)
	m.updateParamList()
}

func (m *controlModel) rereadSelected() {
	param := m.getSelectedParam()
	if param == nil {
		return
	}
	m.cm.readParameter(param.address)
	m.addLogEntry(amp.SeverityInfo, fmt.Sprintf("Reading %s...", param.name))
}

// bindSelected points the expression pedal at the selected parameter
func (m *controlModel) bindSelected() {
	param := m.getSelectedParam()
	if param == nil {
		return
	}

	key := param.address.String()
	state := m.values[key]
	value := state.value
	if !state.known {
		value = 0
	}

	armed, ok := m.cm.bindPedal(param.address, value)
	if !ok {
		m.addLogEntry(amp.SeverityWarning, "No expression pedal connected")
		return
	}

	m.boundKey = key
	m.guard = m.cm.pickupState()
	if armed {
		m.addLogEntry(amp.SeverityInfo, fmt.Sprintf("Pedal bound to %s, pickup armed at %d", param.name, value))
	} else {
		m.addLogEntry(amp.SeveritySuccess, fmt.Sprintf("Pedal bound to %s", param.name))
	}
	m.updateParamList()
}

func (m *controlModel) unbind() {
	if m.boundKey == "" {
		return
	}
	m.cm.unbindPedal()
	m.boundKey = ""
	m.guard = m.cm.pickupState()
	m.addLogEntry(amp.SeverityInfo, "Pedal released")
	m.updateParamList()
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(severity amp.Severity, message string) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		severity:  severity,
		message:   message,
	}
	m.eventLog = append(m.eventLog, entry)

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

// recordLocalSet reflects our own write immediately; the device does not
// echo writes back
func (m *controlModel) recordLocalSet(addr roland.Address, value int) {
	m.values[addr.String()] = paramState{
		value:   value,
		known:   true,
		source:  "set",
		updated: time.Now(),
	}
}

func (m *controlModel) getSelectedParam() *ampParameter {
	if len(ampParameters) == 0 {
		return nil
	}

	idx := m.paramList.Index()
	if idx < 0 || idx >= len(ampParameters) {
		return nil
	}

	return &ampParameters[idx]
}

func findParameter(addr roland.Address) *ampParameter {
	for i := range ampParameters {
		if ampParameters[i].address == addr {
			return &ampParameters[i]
		}
	}
	return nil
}

func (m *controlModel) updateParamList() {
	items := make([]list.Item, len(ampParameters))
	for i, p := range ampParameters {
		items[i] = paramItem{
			param: p,
			state: m.values[p.address.String()],
			bound: m.boundKey == p.address.String(),
		}
	}
	m.paramList.SetItems(items)
}

func (m *controlModel) updateListSize() {
	// Adjust list size based on terminal size
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.paramList.SetSize(34, listHeight)
}
