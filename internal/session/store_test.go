package session

import (
	"fmt"
	"strings"
	"testing"
)

func TestGetOrCreateGeneratesID(t *testing.T) {
	st := NewStore()

	sess, id := st.GetOrCreate("")
	if id == "" {
		t.Fatal("empty id not replaced with a generated one")
	}
	if sess.ID != id {
		t.Errorf("session ID %q != returned id %q", sess.ID, id)
	}

	// A second empty-id call is a new session, not the same one.
	_, id2 := st.GetOrCreate("")
	if id2 == id {
		t.Error("two empty-id calls returned the same id")
	}
	if st.Len() != 2 {
		t.Errorf("store has %d sessions, want 2", st.Len())
	}
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	st := NewStore()

	a, _ := st.GetOrCreate("alpha")
	b, _ := st.GetOrCreate("alpha")
	if a != b {
		t.Error("same id returned different sessions")
	}
	if st.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", st.Len())
	}
}

func TestLedgerIsolation(t *testing.T) {
	st := NewStore()

	a, _ := st.GetOrCreate("alpha")
	b, _ := st.GetOrCreate("beta")

	if a.Ledger() == b.Ledger() {
		t.Fatal("two sessions share a ledger")
	}
}

func TestAppendExchangeCapsTranscript(t *testing.T) {
	sess, _ := NewStore().GetOrCreate("cap")

	for i := 1; i <= 8; i++ {
		sess.AppendExchange(
			fmt.Sprintf("question %d", i),
			fmt.Sprintf("answer %d", i),
		)
	}

	got := sess.Transcript()
	if len(got) != MaxTranscript {
		t.Fatalf("transcript has %d entries, want %d", len(got), MaxTranscript)
	}

	// The newest five exchanges survive, oldest first.
	for i := 0; i < MaxTranscript/2; i++ {
		exchange := 4 + i // exchanges 4..8
		human := got[2*i]
		agent := got[2*i+1]
		if human.Speaker != SpeakerHuman || human.Text != fmt.Sprintf("question %d", exchange) {
			t.Errorf("entry %d = %v %q, want human question %d", 2*i, human.Speaker, human.Text, exchange)
		}
		if agent.Speaker != SpeakerAgent || agent.Text != fmt.Sprintf("answer %d", exchange) {
			t.Errorf("entry %d = %v %q, want agent answer %d", 2*i+1, agent.Speaker, agent.Text, exchange)
		}
	}
}

func TestRenderTranscript(t *testing.T) {
	sess, _ := NewStore().GetOrCreate("render")

	if got := sess.RenderTranscript(); got != "(none)" {
		t.Errorf("empty transcript rendered as %q, want %q", got, "(none)")
	}

	sess.AppendExchange("add 30 for coffee", "Done, recorded $30 for coffee.")

	got := sess.RenderTranscript()
	want := "Human: add 30 for coffee\nAssistant: Done, recorded $30 for coffee."
	if got != want {
		t.Errorf("rendered transcript = %q, want %q", got, want)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("rendered transcript has trailing newline")
	}
}

func TestTranscriptReturnsCopy(t *testing.T) {
	sess, _ := NewStore().GetOrCreate("copy")
	sess.AppendExchange("q", "a")

	entries := sess.Transcript()
	entries[0].Text = "mutated"

	if sess.Transcript()[0].Text != "q" {
		t.Error("mutating the returned slice leaked into the session")
	}
}
