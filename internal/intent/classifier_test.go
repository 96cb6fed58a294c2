package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/caioagent/caio/internal/llm"
)

// fakeLLM returns a canned reply or error.
type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	return f.reply, f.err
}

func TestClassifySingleObject(t *testing.T) {
	c := NewLLMClassifier(&fakeLLM{reply: `{"action": "config_update", "key": "city", "value": "Salvador"}`}, nil)

	got := c.Classify(context.Background(), "I live in Salvador")
	if len(got) != 1 {
		t.Fatalf("got %d intents", len(got))
	}
	if got[0].Action != ActionConfigUpdate {
		t.Errorf("action = %v", got[0].Action)
	}
	if got[0].StringParam("key") != "city" || got[0].StringParam("value") != "Salvador" {
		t.Errorf("params = %v", got[0].Params)
	}
}

func TestClassifyOrderedList(t *testing.T) {
	reply := `[
		{"action": "calendar_add", "summary": "dentist"},
		{"action": "reminder_set", "minutes": 30, "message": "leave home"}
	]`
	c := NewLLMClassifier(&fakeLLM{reply: reply}, nil)

	got := c.Classify(context.Background(), "book the dentist and remind me in 30 minutes")
	if len(got) != 2 {
		t.Fatalf("got %d intents", len(got))
	}
	if got[0].Action != ActionCalendarAdd || got[1].Action != ActionReminderSet {
		t.Errorf("order not preserved: %v, %v", got[0].Action, got[1].Action)
	}
	if got[1].IntParam("minutes") != 30 {
		t.Errorf("minutes = %d", got[1].IntParam("minutes"))
	}
}

func TestClassifyStripsFences(t *testing.T) {
	c := NewLLMClassifier(&fakeLLM{reply: "```json\n{\"action\": \"chat\"}\n```"}, nil)

	got := c.Classify(context.Background(), "good morning")
	if len(got) != 1 || got[0].Action != ActionChat {
		t.Fatalf("got %v", got)
	}
}

func TestClassifyFallsBackToChat(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeLLM
	}{
		{"llm error", &fakeLLM{err: errors.New("timeout")}},
		{"garbage output", &fakeLLM{reply: "I think the user wants a reminder"}},
		{"missing action", &fakeLLM{reply: `{"minutes": 5}`}},
		{"empty list", &fakeLLM{reply: `[]`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMClassifier(tt.fake, nil)
			got := c.Classify(context.Background(), "anything")
			if len(got) != 1 || got[0].Action != ActionChat {
				t.Errorf("got %v, want single chat intent", got)
			}
		})
	}
}

func TestParseActionUnknown(t *testing.T) {
	if got := ParseAction("launch_rockets"); got != ActionUnknown {
		t.Errorf("ParseAction = %v, want ActionUnknown", got)
	}
	// Aliases from earlier prompt revisions.
	if got := ParseAction("google_calendar_add"); got != ActionCalendarAdd {
		t.Errorf("ParseAction alias = %v", got)
	}
	if got := ParseAction("brave_search"); got != ActionWebSearch {
		t.Errorf("ParseAction alias = %v", got)
	}
}

func TestIntParamForms(t *testing.T) {
	i := Intent{Params: map[string]any{"a": float64(7), "b": "12", "c": "x"}}
	if i.IntParam("a") != 7 || i.IntParam("b") != 12 {
		t.Errorf("numeric params: a=%d b=%d", i.IntParam("a"), i.IntParam("b"))
	}
	if i.IntParam("c") != 0 || i.IntParam("missing") != 0 {
		t.Error("invalid params should yield zero")
	}
}
