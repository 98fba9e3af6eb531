// Package responder implements the keyword bot that answers typed chat messages.
package responder

import "strings"

type Action int

const (
	NoAction Action = iota
	ClearHistory
)

type Reply struct {
	Text   string
	Action Action
}

const DefaultReply = "I'm here to help! Try uploading an image or ask me something specific."

type rule struct {
	keyword string
	reply   Reply
}

// Checked in order, first match wins. "hello" has to come before "hi".
var rules = []rule{
	{"hello", Reply{Text: "Hello! How can I assist you today?"}},
	{"image", Reply{Text: "Great! Upload an image, and I'll tell you what I see."}},
	{"bye", Reply{Text: "Goodbye! Feel free to come back anytime!"}},
	{"hi", Reply{Text: "Hi! How can I help you today?"}},
	{"clear", Reply{Text: "Chat history cleared!", Action: ClearHistory}},
}

func Respond(input string) Reply {
	input = strings.ToLower(input)
	for _, r := range rules {
		if strings.Contains(input, r.keyword) {
			return r.reply
		}
	}
	return Reply{Text: DefaultReply}
}
