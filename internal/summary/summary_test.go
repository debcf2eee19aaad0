package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/tone"
)

type fakeCompleter struct {
	out        string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastUser = user
	return f.out, f.err
}

var sampleLog = []session.TurnRecord{
	{UserUtterance: "This is your fault, not mine", Tone: tone.Defensive, PersonaReply: "Excuse me? It broke after two days!"},
	{UserUtterance: "Here's a full refund, I'm sorry", Tone: tone.Apologetic, PersonaReply: "Thank you. That's all I wanted."},
}

const sampleCritique = `**Overall Handling**
- Started defensive, recovered with a refund.

**Career Suitability**
- Suitable with coaching.

**Strengths**
- Offered a concrete remedy.

**Areas for Improvement**
- Avoid blaming the customer.`

func TestTranscript(t *testing.T) {
	got := Transcript(sampleLog)
	require.Equal(t, "Salesperson (defensive): This is your fault, not mine\n"+
		"Customer: Excuse me? It broke after two days!\n"+
		"Salesperson (apologetic): Here's a full refund, I'm sorry\n"+
		"Customer: Thank you. That's all I wanted.\n", got)
}

func TestInstruction(t *testing.T) {
	s := New(&fakeCompleter{}, 150)
	inst := s.Instruction()
	for _, name := range Sections {
		require.Contains(t, inst, "**"+name+"**")
	}
	require.Contains(t, inst, "under 150 words")
	require.Contains(t, inst, `starting with "- "`)
}

func TestSummarize(t *testing.T) {
	fc := &fakeCompleter{out: "\n" + sampleCritique + "\n"}
	s := New(fc, 0)

	c, err := s.Summarize(context.Background(), sampleLog)
	require.NoError(t, err)
	require.False(t, c.Empty)
	require.Equal(t, 2, c.Turns)
	require.Equal(t, sampleCritique, c.Markdown)
	require.Equal(t, Transcript(sampleLog), fc.lastUser)
	require.Contains(t, fc.lastSystem, "under 200 words")
}

func TestSummarizeEmptyLog(t *testing.T) {
	fc := &fakeCompleter{out: "unused"}
	s := New(fc, 0)

	for _, log := range [][]session.TurnRecord{nil, {}} {
		c, err := s.Summarize(context.Background(), log)
		require.NoError(t, err)
		require.True(t, c.Empty)
		require.Equal(t, NoConversation, c.Markdown)
	}
	require.Zero(t, fc.calls)
}

func TestSummarizeFailure(t *testing.T) {
	s := New(&fakeCompleter{err: errors.New("rate limited")}, 0)
	_, err := s.Summarize(context.Background(), sampleLog)
	require.ErrorIs(t, err, ErrSummaryUnavailable)

	s = New(&fakeCompleter{out: "  "}, 0)
	_, err = s.Summarize(context.Background(), sampleLog)
	require.ErrorIs(t, err, ErrSummaryUnavailable)
}

func TestRender(t *testing.T) {
	out, err := Render(sampleCritique)
	require.NoError(t, err)
	html := string(out)
	require.Contains(t, html, "<strong>Overall Handling</strong>")
	require.Contains(t, html, "<li>Offered a concrete remedy.</li>")
}

func TestRenderDropsRawHTML(t *testing.T) {
	out, err := Render("**Strengths**\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)
	require.NotContains(t, string(out), "<script>")
}
