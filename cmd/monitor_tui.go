// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stagewire/fermata/pkg/amp"
	"github.com/stagewire/fermata/pkg/roland"
	"github.com/stagewire/fermata/pkg/tape"
)

// TUI model
type monitorModel struct {
	connInfo      string
	statsInterval int
	errorsOnly    bool
	rec           *tape.Recorder

	stats         *monitorStats
	eventLog      []eventLogEntry
	maxLogEntries int

	lastMessage   *roland.Message
	lastAnomalies int
	lastSeen      time.Time

	width      int
	height     int
	quitting   bool
	connClosed bool
}

// Messages
type monitorTickMsg time.Time

type monitorDataMsg struct {
	message   []byte
	decoded   *roland.Message
	anomalies []roland.ValidationError
	stalled   bool
	raw       []byte
}

type monitorConnClosedMsg struct{}

func initialMonitorModel(connInfo string, statsInterval int, errorsOnly bool, rec *tape.Recorder) monitorModel {
	return monitorModel{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		errorsOnly:    errorsOnly,
		rec:           rec,
		stats:         newMonitorStats(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		// Update statistics rates
		m.stats.CalculateRates()
		return m, monitorTickCmd()

	case monitorConnClosedMsg:
		m.connClosed = true
		m.addLogEntry(amp.SeverityError, "Connection closed")

	case monitorDataMsg:
		m.processMonitorData(msg)
	}

	return m, nil
}

func (m *monitorModel) processMonitorData(msg monitorDataMsg) {
	m.stats.Fragments++

	if msg.raw != nil {
		m.addLogEntry(amp.SeverityInfo, fmt.Sprintf("RX %s", roland.FormatBytes(msg.raw)))
	}

	if msg.stalled {
		m.stats.StalledBuffers++
		m.addLogEntry(amp.SeverityWarning, "Abandoned incomplete message buffer")
	}

	if msg.message == nil {
		return
	}

	m.stats.Update(msg.decoded, msg.anomalies)
	m.lastMessage = msg.decoded
	m.lastAnomalies = len(msg.anomalies)
	m.lastSeen = time.Now()

	if msg.decoded == nil {
		m.addLogEntry(amp.SeverityError, fmt.Sprintf("DECODE FAILED: %s", roland.FormatBytes(msg.message)))
		return
	}

	if len(msg.anomalies) > 0 {
		for _, err := range msg.anomalies {
			m.addLogEntry(amp.SeverityWarning, fmt.Sprintf("%s: %s",
				roland.CommandName(msg.decoded.Command), err.Message))
		}
	} else if !m.errorsOnly {
		m.addLogEntry(amp.SeverityInfo, roland.FormatMessage(msg.decoded))
	}
}

func (m *monitorModel) addLogEntry(severity amp.Severity, message string) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		severity:  severity,
		message:   message,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("FERMATA - TRAFFIC MONITOR"))
	s.WriteString("\n")
	mode := "All messages"
	if m.errorsOnly {
		mode = "Errors only"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("Connection: %s | Mode: %s | Press 'q' to quit",
		m.connInfo, mode)))
	s.WriteString("\n")

	if m.connClosed {
		s.WriteString(errorStyle.Render("✗ Connection closed"))
		s.WriteString("\n")
	}
	if m.rec != nil {
		s.WriteString(headerStyle.Render(fmt.Sprintf("Recording: %s (%d frames)", monitorRecord, m.rec.Count())))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	// Statistics
	m.stats.CalculateRates()
	var cleanPercent, errorPercent float64
	totalErrors := m.stats.DecodeFailures + m.stats.ChecksumErrors + m.stats.ForeignHeaders +
		m.stats.Truncated + m.stats.UnknownCommands + m.stats.StalledBuffers
	if m.stats.Messages > 0 {
		cleanPercent = float64(m.stats.CleanMessages) * 100.0 / float64(m.stats.Messages)
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.Messages)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Messages:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Messages)),
		statsLabelStyle.Render("Clean:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.CleanMessages, cleanPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", totalErrors, errorPercent)),
	))

	if m.stats.ChecksumErrors > 0 || m.stats.DecodeFailures > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Checksum Errors:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors)),
			statsLabelStyle.Render("Decode Failures:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.DecodeFailures)),
		))
	}

	if m.stats.ForeignHeaders > 0 || m.stats.Truncated > 0 || m.stats.UnknownCommands > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s",
			statsLabelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", m.stats.ForeignHeaders+m.stats.Truncated+m.stats.UnknownCommands)),
		))
		statsContent.WriteString(fmt.Sprintf(" (%s: %d, %s: %d, %s: %d)",
			headerStyle.Render("foreign"), m.stats.ForeignHeaders,
			headerStyle.Render("truncated"), m.stats.Truncated,
			headerStyle.Render("unknown cmd"), m.stats.UnknownCommands,
		))
		statsContent.WriteString("\n")
	}

	if m.stats.StalledBuffers > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Stalled Buffers:"), warningStyle.Render(fmt.Sprintf("%d", m.stats.StalledBuffers)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Message Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f msgs/s", m.stats.MessageRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Latest message section (only shown once traffic has arrived)
	if m.lastMessage != nil {
		s.WriteString(statsLabelStyle.Render("Latest Message:"))
		s.WriteString("\n")

		msgContent := strings.Builder{}
		msgContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Command:"), statsValueStyle.Render(roland.CommandName(m.lastMessage.Command)),
			statsLabelStyle.Render("Address:"), statsValueStyle.Render(m.lastMessage.Address.String()),
		))
		msgContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Value:"), statsValueStyle.Render(fmt.Sprintf("%d", m.lastMessage.Value)),
			statsLabelStyle.Render("Checksum:"), func() string {
				if m.lastMessage.ChecksumOK {
					return statsValueStyle.Render("OK")
				}
				return errorStyle.Render(fmt.Sprintf("BAD (0x%02X)", m.lastMessage.Checksum))
			}(),
		))
		msgContent.WriteString(fmt.Sprintf("%s %s",
			statsLabelStyle.Render("Received:"), headerStyle.Render(m.lastSeen.Format("15:04:05.000")),
		))
		if m.lastAnomalies > 0 {
			msgContent.WriteString(fmt.Sprintf("   %s %s",
				statsLabelStyle.Render("Anomalies:"), warningStyle.Render(fmt.Sprintf("%d", m.lastAnomalies)),
			))
		}

		s.WriteString(boxStyle.Render(msgContent.String()))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 15 // Reserve space for header and stats
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			switch entry.severity {
			case amp.SeverityError:
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			case amp.SeverityWarning:
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("! "+entry.message),
				))
			default:
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					"ℹ "+entry.message,
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
