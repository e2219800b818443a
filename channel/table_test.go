package channel

import (
	"encoding/json"
	"testing"
)

func TestJoin_ThenDispatch_Matches(t *testing.T) {
	tbl := New()
	var got string
	tbl.Join("te.*", func(event string, payload json.RawMessage, user interface{}) {
		got = event
	}, nil)

	tbl.Dispatch("test", json.RawMessage(`{"x":42}`))
	if got != "test" {
		t.Errorf("handler not invoked with expected event, got %q", got)
	}
}

func TestJoin_NoMatch_NotInvoked(t *testing.T) {
	tbl := New()
	called := false
	tbl.Join("^only-this$", func(event string, payload json.RawMessage, user interface{}) {
		called = true
	}, nil)

	tbl.Dispatch("something-else", nil)
	if called {
		t.Error("handler invoked for non-matching event")
	}
}

func TestJoin_SamePatternReplacesHandler(t *testing.T) {
	tbl := New()
	var gotUser interface{}
	tbl.Join("x", func(event string, payload json.RawMessage, user interface{}) {
		t.Error("first handler should have been replaced, not invoked")
	}, "first")
	tbl.Join("x", func(event string, payload json.RawMessage, user interface{}) {
		gotUser = user
	}, "second")

	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (replace, not append)", tbl.Len())
	}

	tbl.Dispatch("x", nil)
	if gotUser != "second" {
		t.Errorf("gotUser = %v, want \"second\" (second Join's handler/user should fire)", gotUser)
	}
}

func TestLeave_RemovesExactMatch(t *testing.T) {
	tbl := New()
	tbl.Join("a", func(string, json.RawMessage, interface{}) {}, nil)
	tbl.Join("b", func(string, json.RawMessage, interface{}) {}, nil)

	tbl.Leave("a")
	if tbl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after Leave", tbl.Len())
	}
	if tbl.entries[0].pattern != "b" {
		t.Errorf("wrong entry remained: %s", tbl.entries[0].pattern)
	}
}

func TestDispatch_InvalidPatternSkippedSilently(t *testing.T) {
	tbl := New()
	called := false
	tbl.Join("(unclosed", func(string, json.RawMessage, interface{}) { called = true }, nil)

	tbl.Dispatch("anything", nil)
	if called {
		t.Error("handler with invalid pattern should never be invoked")
	}
}

func TestDispatch_MultipleMatches(t *testing.T) {
	tbl := New()
	count := 0
	tbl.Join("a.*", func(string, json.RawMessage, interface{}) { count++ }, nil)
	tbl.Join(".*c", func(string, json.RawMessage, interface{}) { count++ }, nil)

	tbl.Dispatch("abc", nil)
	if count != 2 {
		t.Errorf("count = %d, want 2 matches", count)
	}
}
