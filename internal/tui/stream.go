package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"thinkchat/internal/api"
)

// ─── Messages sent from stream goroutine to Bubble Tea ──────────────────────

// Every stream message carries the channel it came from. Update compares it
// against activeStreamCh and drops messages from an abandoned request, so a
// cancelled stream can never feed text into the next request's parser state.

// streamSnapshotMsg carries the full accumulated reply text so far, not a
// delta. The model re-classifies the whole snapshot on every message.
type streamSnapshotMsg struct {
	ch       chan tea.Msg
	snapshot string
}

type streamDoneMsg struct {
	ch    chan tea.Msg
	text  string
	usage *api.Usage
}

type streamErrMsg struct {
	ch  chan tea.Msg
	err error
}

// completeResultMsg is the non-streaming reply.
type completeResultMsg struct {
	text  string
	usage *api.Usage
	err   error
}

// ─── Stream command ─────────────────────────────────────────────────────────
//
// Launches the request in a goroutine, forwards snapshots through a
// channel, and returns a tea.Cmd that keeps reading from that channel
// until the stream ends.

// activeStreamCh is stored at package level so Update can keep reading from
// it. Setting it to nil abandons an in-flight stream: the goroutine drains
// into a closed-over channel nobody reads messages from anymore.
var activeStreamCh chan tea.Msg

func beginStream(client api.ChatAPI, messages []api.ChatMessage) tea.Cmd {
	ch := make(chan tea.Msg, 64)
	activeStreamCh = ch

	go func() {
		defer close(ch)

		text, usage, err := client.CompleteStream(messages, func(snapshot string) {
			ch <- streamSnapshotMsg{ch: ch, snapshot: snapshot}
		})
		if err != nil {
			ch <- streamErrMsg{ch: ch, err: err}
			return
		}
		ch <- streamDoneMsg{ch: ch, text: text, usage: usage}
	}()

	return waitForStream(ch)
}

// waitForStream reads the next message from the channel.
func waitForStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return streamDoneMsg{ch: ch}
		}
		return msg
	}
}

// beginComplete runs a non-streaming request.
func beginComplete(client api.ChatAPI, messages []api.ChatMessage) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Complete(messages)
		if err != nil {
			return completeResultMsg{err: err}
		}
		return completeResultMsg{
			text:  resp.Choices[0].Message.Content,
			usage: resp.Usage,
		}
	}
}
