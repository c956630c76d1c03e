package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gyaneshwarpardhi/qsched/internal/job"
	"github.com/gyaneshwarpardhi/qsched/internal/pass"
)

func TestRender(t *testing.T) {
	res := &job.Result{
		Program:     "feedback",
		TotalCycles: 7,
		Blocks: []job.Block{
			{Name: "main", Next: "tail", Cycles: 6, Statements: []job.Statement{
				{Cycle: 0, Duration: 1, Text: "x q[0]"},
				{Cycle: 1, Duration: 5, Text: "measure q[0]"},
			}},
			{Name: "tail", Cycles: 1, Statements: []job.Statement{
				{Cycle: 12, Duration: 1, Text: "x q[1]"},
			}},
		},
		Passes: []*pass.Result{
			{Name: "schedule", Type: "sch.list_schedule", DurationMs: 3, Message: "scheduled 2 blocks"},
		},
	}

	var buf bytes.Buffer
	render(&buf, res, plainStyles())

	want := []string{
		"feedback: 7 cycles",
		"",
		"main (6 cycles) -> tail",
		"  cycle  dur  statement",
		"      0    1  x q[0]",
		"      1    5  measure q[0]",
		"",
		"tail (1 cycles)",
		"  cycle  dur  statement",
		"     12    1  x q[1]",
		"",
		"schedule (sch.list_schedule, 3ms): scheduled 2 blocks",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_FailureAndTruncation(t *testing.T) {
	long := "cond (" + strings.Repeat("bit(q[0]) && ", 10) + "true) x q[0]"
	res := &job.Result{
		Program:   "broken",
		Error:     `unknown instruction "frobnicate"`,
		ErrorKind: job.ErrorKindUser,
		Blocks: []job.Block{{Name: "main", Statements: []job.Statement{
			{Cycle: 0, Duration: 1, Text: long},
		}}},
	}

	var buf bytes.Buffer
	render(&buf, res, plainStyles())
	lines := strings.Split(buf.String(), "\n")

	if diff := cmp.Diff(`user error: unknown instruction "frobnicate"`, lines[1]); diff != "" {
		t.Errorf("error line mismatch (-want +got):\n%s", diff)
	}
	row := lines[len(lines)-2]
	if !strings.HasSuffix(row, "…") {
		t.Errorf("long statement not truncated: %q", row)
	}
}
