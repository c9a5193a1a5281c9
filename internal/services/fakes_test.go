package services

import (
	"context"
	"io"
	"sync"

	"github.com/triggah61/acent-messenger-backend/internal/realtime"
)

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Put(_ context.Context, key, contentType string, body io.Reader, size int64) (*StoredObject, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return &StoredObject{Key: key, URL: "https://cdn.test/" + key, MimeType: contentType, Size: size}, nil
}

type sentEvent struct {
	Target  string
	Event   string
	Payload interface{}
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	rooms []sentEvent
	users []sentEvent
}

var _ realtime.Broadcaster = (*recordingBroadcaster)(nil)

func (r *recordingBroadcaster) ToRoom(room, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, sentEvent{room, event, payload})
}

func (r *recordingBroadcaster) ToUser(userID, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, sentEvent{userID, event, payload})
}

func (r *recordingBroadcaster) roomEvents(event string) []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentEvent
	for _, e := range r.rooms {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type mail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, mail{to, subject, body})
	return nil
}

type recordingSMS struct {
	mu   sync.Mutex
	sent map[string]string
}

func (s *recordingSMS) Send(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent == nil {
		s.sent = map[string]string{}
	}
	s.sent[phone] = message
	return nil
}

type recordingPusher struct {
	channels []string
	events   []string
}

func (p *recordingPusher) Trigger(channel, event string, _ interface{}) error {
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}
