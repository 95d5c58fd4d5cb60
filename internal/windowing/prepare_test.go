package windowing_test

import (
	"testing"

	"github.com/petasbytes/go-mcp-agent/internal/windowing"
	"github.com/petasbytes/go-mcp-agent/memory"
)

func TestPrepareSendWindow_BudgetRespected_OrderPreserved(t *testing.T) {
	// Oldest -> newest
	msgs := []memory.Message{
		User("old"),   // G0: 3 + 4 = 7
		Req("a"),      // G1: 8
		Res("a", "r"), //     + 5 = 13
		User("tail"),  // G2: 4 + 4 = 8
	}
	budget := 21 // G2(8) + G1(13)

	window, stats := windowing.PrepareSendWindow(msgs, budget, windowing.HeuristicCounter{})

	if stats.Budget != budget || stats.Total != 21 || stats.IncludedGroups != 2 || stats.SkippedGroups != 1 || stats.OverBudgetNewest {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(window) != 3 { // expect msgs[1:]
		t.Fatalf("unexpected window length: got %d want=3", len(window))
	}
	if window[0].Role != memory.RoleAssistant || window[1].Role != memory.RoleTool || window[2].Role != memory.RoleUser {
		t.Fatalf("unexpected roles order in window: %+v", window)
	}
}

func TestPrepareSendWindow_NeverSplitsPair(t *testing.T) {
	msgs := []memory.Message{
		Req("a"),      // G0: 8
		Res("a", "r"), //     + 5 = 13
		User("tail"),  // G1: 8
	}
	// Room for the tail and the tool result alone, but not the whole pair.
	window, stats := windowing.PrepareSendWindow(msgs, 15, windowing.HeuristicCounter{})
	if len(window) != 1 || window[0].Role != memory.RoleUser {
		t.Fatalf("expected only the tail, got %+v", window)
	}
	if stats.IncludedGroups != 1 || stats.Total != 8 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_NewestGroupOverBudget(t *testing.T) {
	msgs := []memory.Message{
		User("old"),        // G0: 7
		Req("a"),           // G1: 8
		Res("a", "xxxxxx"), //     + 10 = 18 (newest)
	}
	window, stats := windowing.PrepareSendWindow(msgs, 10, windowing.HeuristicCounter{})

	if len(window) != 0 {
		t.Fatalf("expected empty window; got=%d", len(window))
	}
	if !stats.OverBudgetNewest || stats.IncludedGroups != 0 || stats.SkippedGroups != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if got := windowing.NewestGroup(msgs); len(got) != 2 || got[0].Role != memory.RoleAssistant {
		t.Fatalf("unexpected newest group: %+v", got)
	}
}

func TestPrepareSendWindow_NoCapacityBudget_WithGroups(t *testing.T) {
	window, stats := windowing.PrepareSendWindow([]memory.Message{User("x")}, 0, windowing.HeuristicCounter{})
	if len(window) != 0 || !stats.OverBudgetNewest || stats.SkippedGroups != 1 || stats.IncludedGroups != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestPrepareSendWindow_EmptyMsgs(t *testing.T) {
	window, stats := windowing.PrepareSendWindow(nil, 123, windowing.HeuristicCounter{})
	if window != nil || stats.Budget != 123 || stats.Total != 0 || stats.OverBudgetNewest {
		t.Fatalf("unexpected result: window=%v stats=%+v", window, stats)
	}
	if windowing.NewestGroup(nil) != nil {
		t.Fatalf("expected nil newest group")
	}
}

func TestPrepareSendWindow_AllFit(t *testing.T) {
	msgs := []memory.Message{User("oldest"), Asst("mid"), User("new")}
	window, stats := windowing.PrepareSendWindow(msgs, 1000, windowing.HeuristicCounter{})
	if len(window) != 3 || stats.IncludedGroups != 3 || stats.SkippedGroups != 0 {
		t.Fatalf("unexpected result: window=%d stats=%+v", len(window), stats)
	}
}
