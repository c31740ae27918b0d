// Command vadmon is a terminal dashboard that subscribes to the
// segmentation engine's websocket mention broadcaster (internal/eventbus)
// and renders live segment events as they arrive. Grounded on
// hammamikhairi-otto/internal/display/display.go's bubbletea
// scrollback-plus-status-bar shape, simplified to a single scrolling feed
// since vadmon's only user input is the quit key. Process-level logging
// uses github.com/charmbracelet/log, grounded on
// doismellburning-samoyed's direct dependency on the same package.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/vadcore/segmenter/internal/eventbus"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#94a3b8"))
	sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#bbf7d0"))
	rangeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#bae6fd"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#71717a"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#fca5a5"))
)

type mentionMsg eventbus.VadMentionEvent
type streamClosedMsg struct{ err error }

type model struct {
	url      string
	mentions []eventbus.VadMentionEvent
	closed   bool
	closeErr error
	width    int
	height   int
	feed     <-chan eventbus.VadMentionEvent
}

func (m model) Init() tea.Cmd {
	return waitForMention(m.feed)
}

func waitForMention(feed <-chan eventbus.VadMentionEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-feed
		if !ok {
			return streamClosedMsg{}
		}
		return mentionMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case mentionMsg:
		m.mentions = append(m.mentions, eventbus.VadMentionEvent(msg))
		return m, waitForMention(m.feed)
	case streamClosedMsg:
		m.closed = true
		m.closeErr = msg.err
		return m, nil
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("vadmon — %s", m.url)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("press q to quit"))
	b.WriteString("\n\n")

	height := m.height - 4
	if height < 1 {
		height = 20
	}
	start := 0
	if len(m.mentions) > height {
		start = len(m.mentions) - height
	}
	for _, ev := range m.mentions[start:] {
		line := fmt.Sprintf("%s  %s  %s",
			sourceStyle.Render(padRight(ev.Annotation.Source, 10)),
			rangeStyle.Render(fmt.Sprintf("[%d, %d)", ev.Segment.Start, ev.Segment.Stop)),
			dimStyle.Render(ev.Segment.SignalID))
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.closed {
		if m.closeErr != nil {
			b.WriteString(errStyle.Render("stream closed: " + m.closeErr.Error()))
		} else {
			b.WriteString(errStyle.Render("stream closed"))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func main() {
	url := pflag.StringP("url", "u", "ws://localhost:8080/ws/mentions", "Mention broadcaster websocket URL.")
	help := pflag.Bool("help", false, "Display help text.")
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          "vadmon",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mentions, closeFn, err := eventbus.DialMentions(dialCtx, *url)
	cancel()
	if err != nil {
		logger.Fatal("failed to connect to mention broadcaster", "url", *url, "error", err)
	}
	defer closeFn()

	p := tea.NewProgram(model{url: *url, feed: mentions}, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		logger.Fatal("tui exited with error", "error", err)
	}
}
