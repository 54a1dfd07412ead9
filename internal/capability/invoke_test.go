package capability

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDest = "+15551234567"
	testMsg  = "hello there"
)

func capOf(path string, fn any) Capability {
	return newCapability(path, 0, reflect.ValueOf(fn))
}

func TestSendRepertoireOrder(t *testing.T) {
	shapes := SendRepertoire()

	require.Len(t, shapes, 2+len(DestinationKeys)*len(MessageKeys)+len(MessageKeys)+1)
	assert.Equal(t, "positional(destination, message)", shapes[0].String())
	assert.Equal(t, "positional(message, destination)", shapes[1].String())
	assert.Equal(t, "keyword(to=destination, message=message)", shapes[2].String())
	assert.Equal(t, "keyword(send_to=destination, content=message)", shapes[25].String())
	assert.Equal(t, "keyword(message=message)", shapes[26].String())
	assert.Equal(t, "positional(message)", shapes[len(shapes)-1].String())
}

func TestInvoke_PositionalFirst(t *testing.T) {
	var gotTo, gotMsg string
	fn := func(to, msg string) error {
		gotTo, gotMsg = to, msg
		return nil
	}

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send_sms", fn), testDest, testMsg)

	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, Accepted, attempts[0].Outcome)
	assert.Equal(t, testDest, gotTo)
	assert.Equal(t, testMsg, gotMsg)
}

func TestInvoke_StructKeywordBody(t *testing.T) {
	type post struct{ Body string }
	var got string
	fn := func(p post) error {
		got = p.Body
		return nil
	}

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.post", fn), testDest, testMsg)

	require.NoError(t, err)
	assert.Equal(t, testMsg, got)
	require.Len(t, attempts, 2+len(DestinationKeys)*len(MessageKeys)+3)
	last := attempts[len(attempts)-1]
	assert.Equal(t, Accepted, last.Outcome)
	assert.Equal(t, []string{"body"}, last.Shape.Keys)
	for _, a := range attempts[:len(attempts)-1] {
		assert.Equal(t, Mismatch, a.Outcome, a.Shape.String())
	}
}

func TestInvoke_TaggedPointerStructWithContext(t *testing.T) {
	type request struct {
		Recipient string `json:"recipient"`
		Content   string `json:"content"`
		Priority  int
	}
	type ctxKey struct{}
	var got request
	var seen any
	fn := func(ctx context.Context, req *request) (string, error) {
		seen = ctx.Value(ctxKey{})
		got = *req
		return "msg-1", nil
	}
	ctx := context.WithValue(context.Background(), ctxKey{}, "trace")

	attempts, err := NewInvoker(SendRepertoire()).Invoke(ctx, capOf("client.messages.send", fn), testDest, testMsg)

	require.NoError(t, err)
	assert.Len(t, attempts, 18)
	assert.Equal(t, "trace", seen)
	assert.Equal(t, request{Recipient: testDest, Content: testMsg}, got)
	require.Len(t, attempts[17].results, 1)
	assert.Equal(t, "msg-1", attempts[17].results[0].String())
}

func TestInvoke_MapKeywords(t *testing.T) {
	var got map[string]string
	fn := func(kw map[string]string) error {
		got = kw
		return nil
	}

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.text", fn), testDest, testMsg)

	require.NoError(t, err)
	assert.Len(t, attempts, 3)
	assert.Equal(t, map[string]string{"to": testDest, "message": testMsg}, got)
}

func TestInvoke_Variadic(t *testing.T) {
	var got []string
	fn := func(to string, parts ...string) error {
		got = append([]string{to}, parts...)
		return nil
	}

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send", fn), testDest, testMsg)

	require.NoError(t, err)
	assert.Len(t, attempts, 1)
	assert.Equal(t, []string{testDest, testMsg}, got)
}

func TestInvoke_ConversationSender(t *testing.T) {
	conv := &conversation{}

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("conv.send", conv.Send), testDest, testMsg)

	require.NoError(t, err)
	assert.Len(t, attempts, len(SendRepertoire()))
	assert.Equal(t, []string{testMsg}, conv.sent)
}

func TestInvoke_DomainErrorStopsAtOnce(t *testing.T) {
	errQuota := errors.New("quota exceeded")
	calls := 0
	fn := func(to, msg string) error {
		calls++
		return errQuota
	}

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send_sms", fn), testDest, testMsg)

	require.Error(t, err)
	assert.ErrorIs(t, err, errQuota)
	var ce *CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "client.send_sms", ce.Path)
	assert.Equal(t, "positional(destination, message)", ce.Shape.String())
	assert.Len(t, attempts, 1)
	assert.Equal(t, Failed, attempts[0].Outcome)
	assert.Equal(t, 1, calls)
}

func TestInvoke_ConcreteErrorResult(t *testing.T) {
	t.Run("non-nil pointer is a failure", func(t *testing.T) {
		fn := func(to, msg string) *quotaError { return &quotaError{reason: "exceeded"} }

		attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send_sms", fn), testDest, testMsg)

		var ce *CallError
		require.ErrorAs(t, err, &ce)
		assert.EqualError(t, ce.Err, "quota: exceeded")
		require.Len(t, attempts, 1)
		assert.Equal(t, Failed, attempts[0].Outcome)
	})

	t.Run("nil pointer is success", func(t *testing.T) {
		fn := func(to, msg string) (string, *quotaError) { return "id-1", nil }

		attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send_sms", fn), testDest, testMsg)

		require.NoError(t, err)
		require.Len(t, attempts, 1)
		assert.Equal(t, Accepted, attempts[0].Outcome)
		require.Len(t, attempts[0].results, 1)
		assert.Equal(t, "id-1", attempts[0].results[0].String())
	})
}

func TestInvoke_PanicIsFailure(t *testing.T) {
	fn := func(to, msg string) error { panic("kaboom") }

	attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send", fn), testDest, testMsg)

	assert.ErrorIs(t, err, ErrCalleePanic)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Len(t, attempts, 1)
}

func TestInvoke_NoCompatibleShape(t *testing.T) {
	tests := []struct {
		name string
		fn   any
	}{
		{"three strings", func(a, b, c string) error { return nil }},
		{"numeric chat id", func(chatID int64, text string) error { return nil }},
		{"no arguments", func() error { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send", tt.fn), testDest, testMsg)

			assert.ErrorIs(t, err, ErrNoCompatibleShape)
			assert.Len(t, attempts, len(SendRepertoire()))
			for _, a := range attempts {
				assert.Equal(t, Mismatch, a.Outcome)
			}
		})
	}
}

func TestInvoke_InterfaceParameter(t *testing.T) {
	var got []any
	fn := func(to, msg any) error {
		got = []any{to, msg}
		return nil
	}

	_, err := NewInvoker(SendRepertoire()).Invoke(context.Background(), capOf("client.send", fn), testDest, testMsg)

	require.NoError(t, err)
	assert.Equal(t, []any{testDest, testMsg}, got)
}

func TestInvoke_DestinationRepertoire(t *testing.T) {
	type open struct {
		Number string `json:"number"`
	}
	var got string
	fn := func(o open) (*conversation, error) {
		got = o.Number
		return &conversation{number: o.Number}, nil
	}

	attempts, err := NewInvoker(DestinationRepertoire()).Invoke(context.Background(), capOf("client.conversations.get", fn), testDest, "")

	require.NoError(t, err)
	assert.Equal(t, testDest, got)
	assert.Len(t, attempts, 4)
	assert.Equal(t, "keyword(number=destination)", attempts[3].Shape.String())
}
