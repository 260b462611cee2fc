// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"testing"

	"github.com/jeranaias/obelisk-tui/internal/model"
)

// =============================================================================
// ASSEMBLER TESTS (assembler.go)
// =============================================================================

// recordingSink captures assembly notifications in order.
type recordingSink struct {
	started   []*model.Message
	updated   int
	completed []*model.Message
}

func (s *recordingSink) MessageStarted(m *model.Message)   { s.started = append(s.started, m) }
func (s *recordingSink) MessageUpdated(m *model.Message)   { s.updated++ }
func (s *recordingSink) MessageCompleted(m *model.Message) { s.completed = append(s.completed, m) }

func TestAssembler_NormalLifecycle(t *testing.T) {
	sink := &recordingSink{}
	a := NewAssembler(sink)

	msg := a.Start()
	if !a.Streaming() {
		t.Fatal("Streaming() should be true after Start")
	}

	a.AppendDelta("hello ")
	a.AppendDelta("world")
	a.Complete("")

	if a.Streaming() {
		t.Error("Streaming() should be false after Complete")
	}
	if msg.Content != "hello world" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello world")
	}
	if msg.IsStreaming {
		t.Error("message should no longer be streaming")
	}
	if len(sink.started) != 1 || len(sink.completed) != 1 || sink.updated != 2 {
		t.Errorf("sink saw started=%d updated=%d completed=%d",
			len(sink.started), sink.updated, len(sink.completed))
	}
}

func TestAssembler_FinalTextOverridesAccumulation(t *testing.T) {
	a := NewAssembler(nil)
	msg := a.Start()
	a.AppendDelta("partial draft")
	a.Complete("the polished answer")

	if msg.Content != "the polished answer" {
		t.Errorf("Content = %q, want the final text", msg.Content)
	}
}

func TestAssembler_CompleteReturnsFinalizedMessage(t *testing.T) {
	a := NewAssembler(nil)
	started := a.Start()
	a.AppendDelta("the answer")

	done := a.Complete("")
	if done != started {
		t.Fatal("Complete should return the finalized in-flight message")
	}
	if a.Complete("") != nil {
		t.Error("Complete without an in-flight message should return nil")
	}
}

func TestAssembler_FailReturnsFailedMessage(t *testing.T) {
	a := NewAssembler(nil)
	started := a.Start()

	done := a.Fail("backend error")
	if done != started {
		t.Fatal("Fail should return the failed in-flight message")
	}
	if !done.IsError {
		t.Error("returned message should be marked errored")
	}
	if a.Fail("again") != nil {
		t.Error("Fail without an in-flight message should return nil")
	}
}

func TestAssembler_NoInFlightMessageIsNoOp(t *testing.T) {
	sink := &recordingSink{}
	a := NewAssembler(sink)

	a.AppendDelta("orphan fragment")
	a.Complete("orphan final")
	a.Fail("orphan error")

	if len(sink.started) != 0 || sink.updated != 0 || len(sink.completed) != 0 {
		t.Error("operations without an in-flight message should notify nothing")
	}
}

func TestAssembler_DuplicateCompleteIsHarmless(t *testing.T) {
	sink := &recordingSink{}
	a := NewAssembler(sink)

	a.Start()
	a.AppendDelta("once")
	a.Complete("")
	a.Complete("should be ignored")

	if len(sink.completed) != 1 {
		t.Fatalf("completed %d times, want 1", len(sink.completed))
	}
	if sink.completed[0].Content != "once" {
		t.Errorf("Content = %q, want %q", sink.completed[0].Content, "once")
	}
}

func TestAssembler_StartWhileStreamingFinalizesPrevious(t *testing.T) {
	sink := &recordingSink{}
	a := NewAssembler(sink)

	first := a.Start()
	a.AppendDelta("abandoned ")
	a.AppendDelta("draft")
	second := a.Start()

	if first == second {
		t.Fatal("Start should produce a new message")
	}
	if len(sink.completed) != 1 || sink.completed[0] != first {
		t.Fatal("previous message should be finalized before the new one starts")
	}
	if first.Content != "abandoned draft" {
		t.Errorf("previous Content = %q, want its accumulation kept", first.Content)
	}
	if a.Current() != second {
		t.Error("Current() should be the new message")
	}
}

func TestAssembler_FailMarksError(t *testing.T) {
	a := NewAssembler(nil)
	msg := a.Start()
	a.AppendDelta("half an answ")
	a.Fail("model overloaded")

	if !msg.IsError {
		t.Error("message should be marked as error")
	}
	if msg.Content != "model overloaded" {
		t.Errorf("Content = %q, want the error text", msg.Content)
	}
	if a.Streaming() {
		t.Error("Fail should end the in-flight message")
	}
}
