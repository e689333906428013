// Package session maps session identifiers to bounded conversation
// transcripts and the per-session expense ledger.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenwick/pennywise/internal/ledger"
)

// MaxTranscript caps transcript length. One completed agent run appends
// two utterances, so this keeps the five most recent exchanges.
const MaxTranscript = 10

// Speaker tags who produced an utterance.
type Speaker string

const (
	SpeakerHuman Speaker = "human"
	SpeakerAgent Speaker = "agent"
)

// Utterance is one transcript entry.
type Utterance struct {
	Speaker Speaker
	Text    string
	At      time.Time
}

// Session is one client conversation. Sessions are created on first
// contact and live for the life of the process.
type Session struct {
	ID string

	// runMu serializes whole agent runs on this session, so two
	// concurrent requests with the same id cannot interleave their
	// read-run-append cycles.
	runMu sync.Mutex

	mu         sync.Mutex
	transcript []Utterance
	ledger     *ledger.Ledger
}

// Ledger returns this session's expense ledger. Ledgers are scoped per
// session: one client's expenses are never visible to another.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// LockRun acquires the per-session run lock. Callers must pair it with
// UnlockRun around a full agent run.
func (s *Session) LockRun() { s.runMu.Lock() }

// UnlockRun releases the per-session run lock.
func (s *Session) UnlockRun() { s.runMu.Unlock() }

// Transcript returns a copy of the transcript in order.
func (s *Session) Transcript() []Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Utterance, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// AppendExchange records one completed exchange: exactly one human and
// one agent utterance. The oldest entries are dropped once the
// transcript exceeds MaxTranscript.
func (s *Session) AppendExchange(human, agent string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = append(s.transcript,
		Utterance{Speaker: SpeakerHuman, Text: human, At: now},
		Utterance{Speaker: SpeakerAgent, Text: agent, At: now},
	)
	if excess := len(s.transcript) - MaxTranscript; excess > 0 {
		s.transcript = append(s.transcript[:0:0], s.transcript[excess:]...)
	}
}

// RenderTranscript formats the transcript as prior-context lines for
// the agent prompt. An empty transcript renders as "(none)" so the
// template section is never blank.
func (s *Session) RenderTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.transcript) == 0 {
		return "(none)"
	}

	var b strings.Builder
	for _, u := range s.transcript {
		role := "Human"
		if u.Speaker == SpeakerAgent {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, u.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Store maps session ids to sessions. Sessions are never evicted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first contact.
// An empty id gets a fresh random one; the effective id is returned so
// callers can echo it back to the client.
func (st *Store) GetOrCreate(id string) (*Session, string) {
	if id == "" {
		id = uuid.New().String()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		sess = &Session{ID: id, ledger: ledger.New()}
		st.sessions[id] = sess
	}
	return sess, id
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
