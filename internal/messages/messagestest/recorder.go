// Package messagestest provides an in-memory messages.Notifier for tests.
package messagestest

import (
	"context"
	"strings"
	"sync"

	"telegram-focus-bot/internal/models"
)

// Message is one recorded send or edit.
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	Keyboard  models.Keyboard
}

// HasButton reports whether any button carries the given callback data.
func (m Message) HasButton(data string) bool {
	for _, row := range m.Keyboard {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}

type Answer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// Recorder records everything sent through it. SendErr and EditErr, when set,
// are returned instead of recording.
type Recorder struct {
	mu      sync.Mutex
	nextID  int
	sent    []Message
	edits   []Message
	all     []Message
	answers []Answer

	SendErr error
	EditErr error
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string, kb models.Keyboard) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return 0, r.SendErr
	}
	r.nextID++
	m := Message{ChatID: chatID, MessageID: r.nextID, Text: text, Keyboard: kb}
	r.sent = append(r.sent, m)
	r.all = append(r.all, m)
	return r.nextID, nil
}

func (r *Recorder) Edit(_ context.Context, chatID int64, messageID int, text string, kb models.Keyboard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EditErr != nil {
		return r.EditErr
	}
	m := Message{ChatID: chatID, MessageID: messageID, Text: text, Keyboard: kb}
	r.edits = append(r.edits, m)
	r.all = append(r.all, m)
	return nil
}

func (r *Recorder) Answer(_ context.Context, callbackID, text string, alert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, Answer{CallbackID: callbackID, Text: text, Alert: alert})
	return nil
}

func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

func (r *Recorder) Edits() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.edits...)
}

func (r *Recorder) Answers() []Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Answer(nil), r.answers...)
}

// Last returns the most recent send or edit whose text contains substr.
func (r *Recorder) Last(substr string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.all) - 1; i >= 0; i-- {
		if strings.Contains(r.all[i].Text, substr) {
			return r.all[i], true
		}
	}
	return Message{}, false
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent, r.edits, r.all, r.answers = nil, nil, nil, nil
}
