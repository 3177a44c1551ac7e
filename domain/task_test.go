package domain

import (
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroPosition(t *testing.T) {
	task := Task{ID: "t1", ColumnID: "c1", Title: "Title", Position: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"position\":0") {
		t.Fatalf("expected position field to be present, got %s", payload)
	}
}

func TestColumnMarshalIncludesZeroPosition(t *testing.T) {
	col := Column{ID: "c1", BoardID: "b1", Name: "Todo", Position: 0}

	payload, err := sonic.Marshal(col)
	if err != nil {
		t.Fatalf("marshal column: %v", err)
	}

	if !strings.Contains(string(payload), "\"position\":0") {
		t.Fatalf("expected position field to be present, got %s", payload)
	}
}
