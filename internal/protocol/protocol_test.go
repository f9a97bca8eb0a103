package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Message
	}{
		{
			name: "publish keeps internal spaces",
			in:   ": t hello world",
			want: Message{Op: ":", Key: "t", Value: "hello world"},
		},
		{
			name: "leading run before key and value is collapsed",
			in:   "+  mytopic   first msg",
			want: Message{Op: "+", Key: "mytopic", Value: "first msg"},
		},
		{
			name: "subscribe without value",
			in:   "+ news",
			want: Message{Op: "+", Key: "news"},
		},
		{
			name: "newline terminated key is trimmed",
			in:   "+ news\n",
			want: Message{Op: "+", Key: "news"},
		},
		{
			name: "trailing whitespace in value is kept",
			in:   ": news breaking  \n",
			want: Message{Op: ":", Key: "news", Value: "breaking  \n"},
		},
		{
			name: "internal space runs in value are verbatim",
			in:   ": k a   b",
			want: Message{Op: ":", Key: "k", Value: "a   b"},
		},
		{
			name: "leading spaces before operator are skipped",
			in:   "   - k bye",
			want: Message{Op: "-", Key: "k", Value: "bye"},
		},
		{
			name: "operator only",
			in:   "+\n",
			want: Message{Op: "+"},
		},
		{
			name: "empty input",
			in:   "",
			want: Message{},
		},
		{
			name: "unknown operator still parses",
			in:   "? k v",
			want: Message{Op: "?", Key: "k", Value: "v"},
		},
		{
			name: "multi character operator",
			in:   "pub k v",
			want: Message{Op: "pub", Key: "k", Value: "v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in))
		})
	}
}

func TestMessage_HasKeyHasValue(t *testing.T) {
	m := Parse("+ t hi")
	assert.True(t, m.HasKey())
	assert.True(t, m.HasValue())

	m = Parse("+")
	assert.False(t, m.HasKey())
	assert.False(t, m.HasValue())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "t x", Format("t", "x"))
	assert.Equal(t, "t hello world\n", Format("t", "hello world\n"))
}

func TestEncode_RoundTripsThroughParse(t *testing.T) {
	assert.Equal(t, "+ t", Encode(OpSubscribe, "t", ""))
	assert.Equal(t, ": t a b", Encode(OpPublish, "t", "a b"))

	got := Parse(Encode(OpUnsubscribe, "t", "last words"))
	assert.Equal(t, Message{Op: "-", Key: "t", Value: "last words"}, got)
}
