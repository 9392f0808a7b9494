// Package history_test tests the history package
package history_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/graywizard888/nerdmaster/internal/history"
)

// TestAppendAndHistory tests bounded append semantics with various caps.
// The tests are organized into logical categories using subtests.
func TestAppendAndHistory(t *testing.T) {
	t.Parallel()

	type appendTestCase struct {
		name     string
		cap      int
		appends  []string
		expected []string
	}

	testGroups := map[string][]appendTestCase{
		"Below Capacity": {
			{
				name:     "single entry",
				cap:      3,
				appends:  []string{"a"},
				expected: []string{"a"},
			},
			{
				name:     "exactly at cap",
				cap:      3,
				appends:  []string{"a", "b", "c"},
				expected: []string{"a", "b", "c"},
			},
		},
		"FIFO Eviction": {
			{
				name:     "five entries with cap three keeps last three in order",
				cap:      3,
				appends:  []string{"a", "b", "c", "d", "e"},
				expected: []string{"c", "d", "e"},
			},
			{
				name:     "cap one keeps only newest",
				cap:      1,
				appends:  []string{"a", "b", "c"},
				expected: []string{"c"},
			},
		},
		"Cap Defaults": {
			{
				name:     "non-positive cap falls back to default",
				cap:      0,
				appends:  []string{"a", "b"},
				expected: []string{"a", "b"},
			},
		},
	}

	for groupName, cases := range testGroups {
		t.Run(groupName, func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					s := history.NewStore(tc.cap, nil)
					for _, text := range tc.appends {
						s.Append(42, history.RoleUser, text)
					}

					got := s.History(42)
					if len(got) != len(tc.expected) {
						t.Fatalf("history length = %d, want %d", len(got), len(tc.expected))
					}
					for i, e := range got {
						if e.Text != tc.expected[i] {
							t.Errorf("entry %d = %q, want %q", i, e.Text, tc.expected[i])
						}
					}
				})
			}
		})
	}
}

func TestHistoryUnseenChat(t *testing.T) {
	t.Parallel()

	s := history.NewStore(5, nil)
	if got := s.History(999); len(got) != 0 {
		t.Errorf("unseen chat history length = %d, want 0", len(got))
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := history.NewStore(5, nil)
	s.Append(7, history.RoleUser, "hello")
	s.Append(7, history.RoleAssistant, "hi")
	s.Clear(7)

	if got := s.History(7); len(got) != 0 {
		t.Errorf("history after clear length = %d, want 0", len(got))
	}

	// Clearing one chat must not touch another.
	s.Append(8, history.RoleUser, "still here")
	s.Clear(7)
	if got := s.History(8); len(got) != 1 {
		t.Errorf("unrelated chat history length = %d, want 1", len(got))
	}
}

func TestChatIsolation(t *testing.T) {
	t.Parallel()

	s := history.NewStore(2, nil)
	s.Append(1, history.RoleUser, "one")
	s.Append(2, history.RoleUser, "two")

	if got := s.History(1); len(got) != 1 || got[0].Text != "one" {
		t.Errorf("chat 1 history = %+v, want single entry %q", got, "one")
	}
	if got := s.History(2); len(got) != 1 || got[0].Text != "two" {
		t.Errorf("chat 2 history = %+v, want single entry %q", got, "two")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	t.Parallel()

	s := history.NewStore(5, nil)
	s.Append(1, history.RoleUser, "original")

	got := s.History(1)
	got[0].Text = "mutated"

	if again := s.History(1); again[0].Text != "original" {
		t.Errorf("stored entry was mutated through returned slice: %q", again[0].Text)
	}
}

// TestConcurrentAppend verifies that the cap invariant holds under
// concurrent writers to the same chat.
func TestConcurrentAppend(t *testing.T) {
	t.Parallel()

	const (
		writers    = 8
		perWriter  = 50
		historyCap = 10
	)

	s := history.NewStore(historyCap, nil)

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				s.Append(1, history.RoleUser, fmt.Sprintf("w%d-%d", w, i))
			}
		}()
	}
	wg.Wait()

	if got := s.History(1); len(got) != historyCap {
		t.Errorf("history length after concurrent appends = %d, want %d", len(got), historyCap)
	}
}
