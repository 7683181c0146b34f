package dashboard

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	msgQueueEmpty   = "No messages in queue"
	msgQueueCleared = "Queue view cleared"
)

// queueState is the QueueViewer: the last-fetched batch of messages for one
// queue. It is populated only by explicit user action.
type queueState struct {
	name     string
	messages []string
	cursor   int
	fetched  bool
	loading  bool
	message  string
}

// newQueueState returns a queueState for the named queue.
func newQueueState(name string) queueState {
	return queueState{name: name}
}

// fetchQueue returns a tea.Cmd that reads the queue and wraps the result in a
// QueueFetchedMsg.
func fetchQueue(ctx context.Context, svc QueueService, name string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := svc.FetchQueue(ctx, name)
		return QueueFetchedMsg{Queue: name, Messages: msgs, Err: err}
	}
}

// startFetch marks a fetch in flight. ok is false when one already is.
func (qs queueState) startFetch() (next queueState, ok bool) {
	if qs.loading {
		return qs, false
	}
	qs.loading = true
	return qs, true
}

// applyFetch replaces the batch wholesale. A failed fetch reads the same as
// an empty queue.
func (qs queueState) applyFetch(msg QueueFetchedMsg) queueState {
	qs.loading = false
	qs.fetched = true
	qs.cursor = 0
	if msg.Err != nil {
		qs.messages = nil
	} else {
		qs.messages = append([]string(nil), msg.Messages...)
	}
	switch len(qs.messages) {
	case 0:
		qs.message = msgQueueEmpty
	case 1:
		qs.message = "1 message"
	default:
		qs.message = fmt.Sprintf("%d messages", len(qs.messages))
	}
	return qs
}

// clear discards the local batch. The remote queue is untouched.
func (qs queueState) clear() queueState {
	qs.messages = nil
	qs.cursor = 0
	qs.message = msgQueueCleared
	return qs
}

// Update handles list navigation.
func (qs queueState) Update(msg tea.Msg) (queueState, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || len(qs.messages) == 0 {
		return qs, nil
	}
	switch km.String() {
	case "up", "k":
		qs.cursor--
		if qs.cursor < 0 {
			qs.cursor = len(qs.messages) - 1
		}
	case "down", "j":
		qs.cursor++
		if qs.cursor >= len(qs.messages) {
			qs.cursor = 0
		}
	}
	return qs, nil
}

// Selected returns the message at the cursor, or "".
func (qs queueState) Selected() string {
	if qs.cursor < 0 || qs.cursor >= len(qs.messages) {
		return ""
	}
	return qs.messages[qs.cursor]
}

// View renders the message list. Each entry is cut to one line; the full
// text of the selected message is shown in the detail pane.
func (qs queueState) View(width, height int, spinnerView string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Queue " + qs.name))
	if qs.loading {
		b.WriteString(" " + spinnerView)
	}
	b.WriteByte('\n')

	if !qs.fetched && len(qs.messages) == 0 && qs.message == "" {
		b.WriteString("Press f to fetch messages")
		return b.String()
	}
	for i, m := range qs.messages {
		if i == qs.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(truncate(firstLine(m), width-len(CursorMarker)-2))
		b.WriteByte('\n')
	}
	if qs.message != "" {
		b.WriteString(mutedText.Render(qs.message))
	}
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
