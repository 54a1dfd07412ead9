package capability

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// Report describes a finished send.
type Report struct {
	// Used is the path of the callable that accepted the message.
	Used string
	// Tried counts candidates invoked, conversation makers included.
	Tried int
	// Candidates counts senders discovered across all passes.
	Candidates int
	// Visited counts objects visited by the first discovery pass.
	Visited int
	// Attempts lists every shape tried, in order.
	Attempts []Attempt
}

// Engine runs discovery and invocation for one send at a time.
// It is not safe for concurrent use with the same client.
type Engine struct {
	discoverer *Discoverer
	senders    *Invoker
	makers     *Invoker
	log        *zerolog.Logger
}

// NewEngine builds an engine. A nil logger disables logging.
func NewEngine(opts Options, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{
		discoverer: NewDiscoverer(opts),
		senders:    NewInvoker(SendRepertoire()),
		makers:     NewInvoker(DestinationRepertoire()),
		log:        logger,
	}
}

// Inspect returns the ranked sender candidates without invoking anything.
func (e *Engine) Inspect(client any) []Capability {
	return e.discoverer.Discover(client)
}

// Send delivers message to destination through the first candidate that
// accepts it.
//
// A candidate that fails after accepting its arguments does not end the
// search: the next candidate is tried. If the failed candidate had already
// delivered the message before erroring, the message is sent twice.
func (e *Engine) Send(ctx context.Context, client any, destination, message string) (*Report, error) {
	walk := e.discoverer.Walk(client)
	rep := &Report{Visited: walk.Visited}

	direct := Rank(walk.Callables, SenderLexicon)
	if len(direct) > 0 {
		rep.Candidates = len(direct)
		last := e.trySenders(ctx, rep, direct, destination, message)
		if rep.Used != "" {
			return rep, nil
		}
		return rep, &SendError{Tried: rep.Tried, Last: last}
	}

	makers := Rank(walk.Callables, MakerLexicon)
	if len(makers) == 0 {
		return rep, ErrNoCandidatesFound
	}
	e.log.Debug().Int("makers", len(makers)).Msg("no direct sender; trying conversation makers")

	var last error
	for _, mk := range makers {
		conv, err := e.materialize(ctx, rep, mk, destination)
		if err != nil {
			last = err
			e.log.Debug().Str("maker", mk.Path).Err(err).Msg("conversation not opened")
			continue
		}
		narrow := e.discoverer.walk(conv, mk.Path, e.discoverer.opts.ConversationDepth)
		senders := Rank(narrow.Callables, SenderLexicon)
		rep.Candidates += len(senders)
		if len(senders) == 0 {
			continue
		}
		err = e.trySenders(ctx, rep, senders, destination, message)
		if rep.Used != "" {
			return rep, nil
		}
		last = err
	}
	if rep.Candidates == 0 && last == nil {
		return rep, ErrNoCandidatesFound
	}
	return rep, &SendError{Tried: rep.Tried, Last: last}
}

func (e *Engine) trySenders(ctx context.Context, rep *Report, candidates []Capability, destination, message string) error {
	var last error
	for _, c := range candidates {
		rep.Tried++
		attempts, err := e.senders.Invoke(ctx, c, destination, message)
		rep.Attempts = append(rep.Attempts, attempts...)
		if err == nil {
			rep.Used = c.Path
			e.log.Debug().Str("path", c.Path).Str("shape", attempts[len(attempts)-1].Shape.String()).Msg("candidate accepted")
			return nil
		}
		last = err
		var ce *CallError
		if errors.As(err, &ce) {
			e.log.Warn().Str("path", c.Path).Err(err).Msg("candidate failed after accepting arguments; trying next")
			continue
		}
		e.log.Debug().Str("path", c.Path).Err(err).Msg("candidate skipped")
	}
	return last
}

// materialize opens a conversation through mk and returns it as a traversal root.
func (e *Engine) materialize(ctx context.Context, rep *Report, mk Capability, destination string) (reflect.Value, error) {
	rep.Tried++
	attempts, err := e.makers.Invoke(ctx, mk, destination, "")
	rep.Attempts = append(rep.Attempts, attempts...)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	for _, r := range attempts[len(attempts)-1].results {
		if isObject(r) {
			return box(r), nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %s returned no object", ErrMaterialize, mk.Path)
}
