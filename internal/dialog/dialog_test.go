package dialog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"homebot/internal/domain"
	"homebot/internal/turn"
	"homebot/internal/validate"
)

func newTurn(conv *domain.ConversationState, text string) *turn.Context {
	act := domain.Activity{
		Type:         domain.ActivityMessage,
		From:         domain.ChannelAccount{ID: "user-1"},
		Recipient:    domain.ChannelAccount{ID: "bot"},
		Conversation: domain.ConversationAccount{ID: conv.ConversationID},
		Text:         text,
	}
	return turn.New(act, conv, domain.NewUserState("user-1"))
}

// askTwice asks for a name, then a unit, and ends with both values.
func askTwice(t *testing.T) *Set {
	t.Helper()
	w, err := NewWaterfall(
		func(_ context.Context, dc *Context, _ any) (Result, error) {
			return dc.Prompt("name", "name?")
		},
		func(_ context.Context, dc *Context, v any) (Result, error) {
			if err := dc.SaveState(map[string]string{"name": v.(string)}); err != nil {
				return Result{}, err
			}
			return dc.Prompt("unit", "unit?")
		},
		func(_ context.Context, dc *Context, v any) (Result, error) {
			var st map[string]string
			if err := dc.LoadState(&st); err != nil {
				return Result{}, err
			}
			return dc.End(fmt.Sprintf("%s@%s", st["name"], v))
		},
	)
	require.NoError(t, err)

	s := NewSet()
	require.NoError(t, s.Add("ask", w))
	require.NoError(t, s.AddPrompt("name", NewTextPrompt(validate.Name())))
	require.NoError(t, s.AddPrompt("unit", NewTextPrompt(validate.UnitNumber())))
	return s
}

func TestSet_Registration(t *testing.T) {
	s := NewSet()
	require.NoError(t, s.Add("a", &Waterfall{}))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, s.Add("a", &Waterfall{}), &cfgErr)
	require.ErrorAs(t, s.AddPrompt("a", NewConfirmPrompt()), &cfgErr)
	require.ErrorAs(t, s.Add(" ", &Waterfall{}), &cfgErr)
	require.ErrorAs(t, s.Add("b", nil), &cfgErr)
	require.ErrorAs(t, s.AddPrompt("p", nil), &cfgErr)

	require.True(t, s.Has("a"))
	require.False(t, s.Has("b"))
	require.NoError(t, s.Require("a"))

	var nf *NotFoundError
	require.ErrorAs(t, s.Require("a", "b"), &nf)
	require.Equal(t, "b", nf.Name)
}

func TestNewWaterfall_Validates(t *testing.T) {
	_, err := NewWaterfall()
	require.Error(t, err)
	_, err = NewWaterfall(nil)
	require.Error(t, err)
}

func TestBegin_Unregistered(t *testing.T) {
	conv := domain.NewConversationState("c")
	dc := NewSet().CreateContext(newTurn(conv, "hi"))
	_, err := dc.Begin(context.Background(), "missing", nil)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Empty(t, conv.DialogStack)
}

func TestContinue_EmptyStackIsNoop(t *testing.T) {
	conv := domain.NewConversationState("c")
	tc := newTurn(conv, "hi")
	res, err := NewSet().CreateContext(tc).Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusEmpty, res.Status)
	require.False(t, tc.Responded())
}

func TestWaterfall_SuspendsAndResumesAcrossTurns(t *testing.T) {
	s := askTwice(t)
	conv := domain.NewConversationState("c")
	ctx := context.Background()

	res, err := s.CreateContext(newTurn(conv, "hi")).Begin(ctx, "ask", nil)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Len(t, conv.DialogStack, 1)
	require.Equal(t, 1, conv.DialogStack[0].Step)
	require.Equal(t, "name", conv.DialogStack[0].Prompt.ID)

	tc := newTurn(conv, "John")
	res, err = s.CreateContext(tc).Continue(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Equal(t, 2, conv.DialogStack[0].Step)
	require.Equal(t, []string{"unit?"}, tc.Texts())

	res, err = s.CreateContext(newTurn(conv, "4b")).Continue(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Equal(t, "John@4B", res.Value)
	require.Empty(t, conv.DialogStack)
}

func TestContinue_RejectedReplyRepromptsWithoutAdvancing(t *testing.T) {
	s := askTwice(t)
	conv := domain.NewConversationState("c")
	ctx := context.Background()

	_, err := s.CreateContext(newTurn(conv, "hi")).Begin(ctx, "ask", nil)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		tc := newTurn(conv, "John!!")
		res, err := s.CreateContext(tc).Continue(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusWaiting, res.Status)
		require.Equal(t, 1, conv.DialogStack[0].Step)
		require.Equal(t, i, conv.DialogStack[0].Prompt.Attempts)
		require.Equal(t, []string{validate.Name().Message(), "name?"}, tc.Texts())
	}
}

func TestEnd_DoesNotResumeParent(t *testing.T) {
	parentRan := 0
	parent, err := NewWaterfall(
		func(ctx context.Context, dc *Context, _ any) (Result, error) {
			return dc.Begin(ctx, "child", nil)
		},
		func(_ context.Context, dc *Context, v any) (Result, error) {
			parentRan++
			return dc.End(v)
		},
	)
	require.NoError(t, err)
	child, err := NewWaterfall(
		func(_ context.Context, dc *Context, _ any) (Result, error) {
			return dc.Prompt("yesno", "sure?")
		},
		func(_ context.Context, dc *Context, v any) (Result, error) {
			return dc.End(v)
		},
	)
	require.NoError(t, err)

	s := NewSet()
	require.NoError(t, s.Add("parent", parent))
	require.NoError(t, s.Add("child", child))
	require.NoError(t, s.AddPrompt("yesno", NewConfirmPrompt()))

	conv := domain.NewConversationState("c")
	ctx := context.Background()
	res, err := s.CreateContext(newTurn(conv, "go")).Begin(ctx, "parent", nil)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, res.Status)
	require.Len(t, conv.DialogStack, 2)
	require.Equal(t, 1, conv.DialogStack[0].Step)
	require.Equal(t, 1, conv.DialogStack[1].Step)

	res, err = s.CreateContext(newTurn(conv, "Yes!")).Continue(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Equal(t, true, res.Value)
	require.Len(t, conv.DialogStack, 1)
	require.Zero(t, parentRan)

	res, err = s.CreateContext(newTurn(conv, "next")).Continue(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, res.Status)
	require.Equal(t, "next", res.Value)
	require.Equal(t, 1, parentRan)
	require.Empty(t, conv.DialogStack)
}

func TestCancel_ClearsStackAndFlow(t *testing.T) {
	s := askTwice(t)
	conv := domain.NewConversationState("c")
	conv.ActiveFlow = true
	dc := s.CreateContext(newTurn(conv, "hi"))
	_, err := dc.Begin(context.Background(), "ask", nil)
	require.NoError(t, err)

	res, err := dc.Cancel()
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, res.Status)
	require.Empty(t, conv.DialogStack)
	require.False(t, conv.ActiveFlow)
}

func TestContinue_UnknownDialogOnStack(t *testing.T) {
	conv := domain.NewConversationState("c")
	conv.DialogStack = []domain.DialogInstance{{ID: "retired", Step: 1}}
	_, err := NewSet().CreateContext(newTurn(conv, "hi")).Continue(context.Background())
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "retired", nf.Name)
}

func TestOperationsWithoutActiveDialog(t *testing.T) {
	s := askTwice(t)
	dc := s.CreateContext(newTurn(domain.NewConversationState("c"), "hi"))

	_, err := dc.Prompt("name", "name?")
	require.ErrorIs(t, err, ErrNoActiveDialog)
	_, err = dc.Wait()
	require.ErrorIs(t, err, ErrNoActiveDialog)
	require.ErrorIs(t, dc.SaveState(1), ErrNoActiveDialog)
	require.ErrorIs(t, dc.LoadState(new(int)), ErrNoActiveDialog)
}

func TestConfirmPrompt_Recognize(t *testing.T) {
	p := NewConfirmPrompt()
	cases := []struct {
		in   string
		want bool
		ok   bool
	}{
		{"yes", true, true},
		{" Yes! ", true, true},
		{"yep", true, true},
		{"no", false, true},
		{"Nope.", false, true},
		{"maybe", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		v, ok := p.Recognize(tc.in)
		require.Equal(t, tc.ok, ok, "in=%q", tc.in)
		if ok {
			require.Equal(t, tc.want, v, "in=%q", tc.in)
		}
	}
	require.NotEmpty(t, p.RetryMessage())
}

func TestTextPrompt_WithoutValidator(t *testing.T) {
	p := NewTextPrompt(nil)
	v, ok := p.Recognize("  hello ")
	require.True(t, ok)
	require.Equal(t, "hello", v)
	_, ok = p.Recognize("   ")
	require.False(t, ok)
	require.Empty(t, p.RetryMessage())
}
