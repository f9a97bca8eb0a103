// Package protocol implements the three-field text protocol spoken by pubd
// clients: an operator, a topic key and an optional value.
//
//	+ <key> [value]   subscribe, optionally publishing a first message
//	: <key> <value>   publish
//	- <key> [value]   unsubscribe, optionally publishing a last message
//
// One socket read is one message. There is no framing.
package protocol

import (
	"strings"
	"unicode"
)

// Operators understood by the broker.
const (
	OpSubscribe   = "+"
	OpPublish     = ":"
	OpUnsubscribe = "-"
)

// Message is a parsed inbound message.
type Message struct {
	Op    string
	Key   string
	Value string
}

// HasKey reports whether the message addresses a topic.
func (m Message) HasKey() bool {
	return m.Key != ""
}

// HasValue reports whether the message carries a value.
func (m Message) HasValue() bool {
	return m.Value != ""
}

// Parse splits text into operator, key and value.
//
// Only the space character separates fields. Spaces before the operator and
// the run of spaces before the key or the value are skipped. Once the value
// has started every character is kept verbatim, trailing whitespace included.
// The operator is trimmed on the right and the key on both sides, so a
// message like "+ topic\n" yields the key "topic".
func Parse(text string) Message {
	var op, key, value strings.Builder

	field := 0
	for _, c := range text {
		if c == ' ' {
			switch {
			case value.Len() > 0:
				value.WriteRune(c)
			case key.Len() > 0:
				field = 2
			case op.Len() > 0:
				field = 1
			}
			continue
		}

		switch field {
		case 0:
			op.WriteRune(c)
		case 1:
			key.WriteRune(c)
		default:
			value.WriteRune(c)
		}
	}

	return Message{
		Op:    strings.TrimRightFunc(op.String(), unicode.IsSpace),
		Key:   strings.TrimSpace(key.String()),
		Value: value.String(),
	}
}

// Format builds the outbound fan-out message for a publish.
func Format(key, value string) string {
	return key + " " + value
}

// Encode builds an inbound message, as sent by a client.
func Encode(op, key, value string) string {
	if value == "" {
		return op + " " + key
	}
	return op + " " + key + " " + value
}
