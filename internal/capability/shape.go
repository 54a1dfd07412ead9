package capability

import (
	"fmt"
	"strings"
)

// Arg names a value the caller supplies.
type Arg int

const (
	Destination Arg = iota
	Message
)

func (a Arg) String() string {
	if a == Destination {
		return "destination"
	}
	return "message"
}

// Shape is one way of arranging arguments for a call. Keys is nil for
// positional shapes; otherwise Keys[i] is the keyword carrying Args[i].
type Shape struct {
	Args []Arg
	Keys []string
}

// Keyword reports whether the shape passes named arguments.
func (s Shape) Keyword() bool { return s.Keys != nil }

func (s Shape) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		if s.Keyword() {
			parts[i] = s.Keys[i] + "=" + a.String()
		} else {
			parts[i] = a.String()
		}
	}
	kind := "positional"
	if s.Keyword() {
		kind = "keyword"
	}
	return fmt.Sprintf("%s(%s)", kind, strings.Join(parts, ", "))
}

var (
	// DestinationKeys are keyword names tried for the destination, in order.
	DestinationKeys = []string{"to", "phone", "number", "recipient", "contact", "send_to"}
	// MessageKeys are keyword names tried for the message body, in order.
	MessageKeys = []string{"message", "text", "body", "content"}
)

func positional(args ...Arg) Shape { return Shape{Args: args} }

// SendRepertoire is the ordered list of shapes tried against a sender.
func SendRepertoire() []Shape {
	shapes := []Shape{
		positional(Destination, Message),
		positional(Message, Destination),
	}
	for _, dk := range DestinationKeys {
		for _, mk := range MessageKeys {
			shapes = append(shapes, Shape{Args: []Arg{Destination, Message}, Keys: []string{dk, mk}})
		}
	}
	for _, mk := range MessageKeys {
		shapes = append(shapes, Shape{Args: []Arg{Message}, Keys: []string{mk}})
	}
	// Plain Go parameters have no names, so a sender bound to a
	// conversation is only reachable positionally.
	return append(shapes, positional(Message))
}

// DestinationRepertoire is the ordered list of shapes tried against a
// conversation maker.
func DestinationRepertoire() []Shape {
	shapes := []Shape{positional(Destination)}
	for _, dk := range DestinationKeys {
		shapes = append(shapes, Shape{Args: []Arg{Destination}, Keys: []string{dk}})
	}
	return shapes
}
