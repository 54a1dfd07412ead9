// Package capability finds and calls a message-sending method on a client
// whose API surface is not known at compile time.
//
// Discovery walks the client's object graph through reflection and ranks the
// callables it finds by lexical hints. The invoker then tries a fixed
// repertoire of argument shapes against each candidate until one is accepted.
package capability

import (
	"reflect"
	"strings"
)

// Capability is a discovered callable plus how it was reached.
type Capability struct {
	Path       string   `json:"path"`
	Params     []string `json:"params"`
	ParamTypes []string `json:"param_types"`
	Depth      int      `json:"depth"`
	Score      int      `json:"score"`

	fn reflect.Value
}

// Dots returns how many dots the path contains.
func (c Capability) Dots() int { return strings.Count(c.Path, ".") }

// Options bound and label a discovery pass.
type Options struct {
	// RootName labels the root node in every path.
	RootName string
	// MaxDepth caps how many attribute hops are followed from the root.
	MaxDepth int
	// MaxNodes caps the total number of visited objects.
	MaxNodes int
	// ConversationDepth is the MaxDepth used when searching a materialized conversation.
	ConversationDepth int
	// SkipAccessors disables calling zero-argument getters during traversal.
	SkipAccessors bool
	// OnVisit, if set, is called once for every visited object.
	OnVisit func(Visit)
}

// Visit describes one visited object.
type Visit struct {
	Path   string
	Depth  int
	Object any
}

const (
	defaultRootName          = "client"
	defaultMaxDepth          = 3
	defaultMaxNodes          = 2000
	defaultConversationDepth = 1
)

// DefaultOptions returns the standard traversal limits.
func DefaultOptions() Options {
	return Options{
		RootName:          defaultRootName,
		MaxDepth:          defaultMaxDepth,
		MaxNodes:          defaultMaxNodes,
		ConversationDepth: defaultConversationDepth,
	}
}

func (o Options) normalize() Options {
	if o.RootName == "" {
		o.RootName = defaultRootName
	}
	if o.MaxDepth < 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
	if o.ConversationDepth < 0 {
		o.ConversationDepth = defaultConversationDepth
	}
	return o
}

// Lexicon is the vocabulary used to filter and score candidate paths.
type Lexicon struct {
	// Hints are plain terms; a path must contain at least one.
	Hints []string
	// Strong terms add a bonus when any of them appears.
	Strong []string
}

var (
	// SenderLexicon recognizes methods that send a message.
	SenderLexicon = Lexicon{
		Hints:  []string{"send", "text", "sms", "message"},
		Strong: []string{"send_sms", "send_message", "messages.send", "text"},
	}

	// MakerLexicon recognizes methods that open a conversation with a destination.
	MakerLexicon = Lexicon{
		Hints: []string{"conversation", "thread", "chat"},
		Strong: []string{
			"create_conversation", "get_conversation", "open_conversation",
			"conversations.create", "conversations.get",
		},
	}
)
