package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAssistant, RoleUser, RoleSystem:
		return true
	}
	return false
}

// ParseRole maps a wire role string onto a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", errors.Wrapf(ErrMalformedPayload, "unknown role %q", s)
	}
	return r, nil
}

// Message is one entry of a thread. (ThreadUID, Order) identifies it; Order is
// also the display position. ArchiveFor lists the orders this message proposes
// to archive and is empty for ordinary messages.
//
// Messages are values: change one by building a new Message, never by editing
// a slice obtained from another.
type Message struct {
	ThreadUID  string
	Order      int
	Role       Role
	Text       string
	ArchiveFor []int
}

// Payload is the wire form of a Message.
type Payload struct {
	ThreadUID  string `json:"thread_uid" yaml:"thread_uid"`
	Order      int    `json:"order" yaml:"order"`
	Role       Role   `json:"role" yaml:"role"`
	Text       string `json:"text" yaml:"text"`
	ArchiveFor []int  `json:"archive_for" yaml:"archive_for"`
}

// IsArchiveSuggestion reports whether the message targets other messages.
func (m Message) IsArchiveSuggestion() bool { return len(m.ArchiveFor) > 0 }

// WithArchiveFor returns a copy of m targeting orders.
func (m Message) WithArchiveFor(orders []int) Message {
	m.ArchiveFor = slices.Clone(orders)
	return m
}

// Clone returns a copy that shares no memory with m.
func (m Message) Clone() Message {
	m.ArchiveFor = slices.Clone(m.ArchiveFor)
	return m
}

// Preview returns the first line of the text, cut to max runes.
func (m Message) Preview(max int) string {
	line, _, _ := strings.Cut(m.Text, "\n")
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if max > 0 && len(runes) > max {
		return string(runes[:max]) + "…"
	}
	return line
}

func (m Message) String() string {
	return fmt.Sprintf("%s#%d[%s]", m.ThreadUID, m.Order, m.Role)
}

// Payload returns the wire form of m. archive_for is always present.
func (m Message) Payload() Payload {
	return EncodeMessage(m)
}

func EncodeMessage(m Message) Payload {
	archiveFor := make([]int, len(m.ArchiveFor))
	copy(archiveFor, m.ArchiveFor)
	return Payload{
		ThreadUID:  m.ThreadUID,
		Order:      m.Order,
		Role:       m.Role,
		Text:       m.Text,
		ArchiveFor: archiveFor,
	}
}

func EncodeMessages(msgs []Message) []Payload {
	out := make([]Payload, len(msgs))
	for i, m := range msgs {
		out[i] = EncodeMessage(m)
	}
	return out
}

// DecodeMessage validates raw against the message schema and maps it onto a
// Message. Any mismatch is reported as ErrMalformedPayload.
func DecodeMessage(raw []byte) (Message, error) {
	if err := validatePayload(raw); err != nil {
		return Message{}, err
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Message{}, errors.Wrapf(ErrMalformedPayload, "decode message: %v", err)
	}
	return p.Message()
}

// DecodeMessages decodes a JSON array of message payloads.
func DecodeMessages(raw []byte) ([]Message, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrapf(ErrMalformedPayload, "expected an array of messages: %v", err)
	}

	msgs := make([]Message, 0, len(items))
	for i, item := range items {
		m, err := DecodeMessage(item)
		if err != nil {
			return nil, errors.Wrapf(err, "message %d", i)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Message converts an already-unmarshalled payload, re-checking the role.
func (p Payload) Message() (Message, error) {
	role, err := ParseRole(string(p.Role))
	if err != nil {
		return Message{}, err
	}
	return Message{
		ThreadUID:  p.ThreadUID,
		Order:      p.Order,
		Role:       role,
		Text:       p.Text,
		ArchiveFor: slices.Clone(p.ArchiveFor),
	}, nil
}
