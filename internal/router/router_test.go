package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/caioagent/caio/internal/fetch"
	"github.com/caioagent/caio/internal/intent"
	"github.com/caioagent/caio/internal/llm"
	"github.com/caioagent/caio/internal/memory"
	"github.com/caioagent/caio/internal/monitor"
	"github.com/caioagent/caio/internal/outbox"
	"github.com/caioagent/caio/internal/search"
)

type fakeMailbox struct {
	messages []outbox.Message
}

func (f *fakeMailbox) Enqueue(m outbox.Message) bool {
	f.messages = append(f.messages, m)
	return true
}

type fakeClassifier struct {
	intents []intent.Intent
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) []intent.Intent {
	return f.intents
}

type fakeMemory struct {
	stored []string
	prefs  map[string]string
}

func (f *fakeMemory) Store(content, source string, _ float64) {
	f.stored = append(f.stored, source+":"+content)
}
func (f *fakeMemory) Recall(string, int) []memory.Entry { return nil }
func (f *fakeMemory) SetPreference(key, value string) {
	if f.prefs == nil {
		f.prefs = make(map[string]string)
	}
	f.prefs[key] = value
}
func (f *fakeMemory) GetPreference(key, def string) string {
	if v, ok := f.prefs[key]; ok {
		return v
	}
	return def
}

type fakeScheduler struct {
	once  []string
	daily []string
	err   error
}

func (f *fakeScheduler) ScheduleOnce(_ int64, _ int, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.once = append(f.once, message)
	return "id", nil
}
func (f *fakeScheduler) ScheduleDaily(_ int64, tod, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.daily = append(f.daily, tod+" "+message)
	return "id", nil
}

type fakeCalendar struct {
	created []string
	events  []monitor.Event
	err     error
}

func (f *fakeCalendar) CreateEvent(_ context.Context, summary string, _ time.Time, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, summary)
	return nil
}
func (f *fakeCalendar) UpcomingEvents(context.Context, time.Time, time.Time) ([]monitor.Event, error) {
	return f.events, f.err
}

type fakeWeather struct {
	report string
	err    error
}

func (f *fakeWeather) Current(_ context.Context, city string) (string, error) {
	return f.report, f.err
}

type fakeSearcher struct {
	results []search.Result
	err     error
}

func (f *fakeSearcher) Search(context.Context, string, int) ([]search.Result, error) {
	return f.results, f.err
}

type fakeFetcher struct {
	fetched []string
	page    *fetch.Page
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string, _ int) (*fetch.Page, error) {
	f.fetched = append(f.fetched, rawURL)
	return f.page, f.err
}

type fakeLLM struct {
	prompts []string
	reply   string
	err     error
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, error) {
	for _, m := range messages {
		f.prompts = append(f.prompts, m.Content)
	}
	return f.reply, f.err
}

func newDispatcher(cfg Config) (*Dispatcher, *fakeMailbox, *fakeMemory) {
	mail := &fakeMailbox{}
	mem := &fakeMemory{}
	cfg.Mail = mail
	cfg.Memory = mem
	if cfg.Classifier == nil {
		cfg.Classifier = &fakeClassifier{intents: []intent.Intent{{Action: intent.ActionChat}}}
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = &fakeScheduler{}
	}
	return New(cfg), mail, mem
}

func TestBatchIsolation(t *testing.T) {
	// First intent fails (calendar error), second succeeds (weather).
	d, mail, _ := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionCalendarList},
			{Action: intent.ActionWeather, Params: map[string]any{"city": "Lisbon"}},
		}},
		Calendar: &fakeCalendar{err: errors.New("server down")},
		Weather:  &fakeWeather{report: "Lisbon: ☀️ +25°C"},
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "agenda and weather please"})

	if len(mail.messages) != 2 {
		t.Fatalf("got %d replies, want 2", len(mail.messages))
	}
	if mail.messages[0].Text != errorReply {
		t.Errorf("first reply = %q, want the generic error reply", mail.messages[0].Text)
	}
	if !strings.Contains(mail.messages[1].Text, "+25°C") {
		t.Errorf("second reply = %q", mail.messages[1].Text)
	}
}

func TestEmptyMessageIgnored(t *testing.T) {
	d, mail, mem := newDispatcher(Config{})
	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "   "})
	if len(mail.messages) != 0 || len(mem.stored) != 0 {
		t.Fatal("blank message was processed")
	}
}

func TestConversationRecordedInMemory(t *testing.T) {
	d, _, mem := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionConfigUpdate, Params: map[string]any{"key": "city", "value": "Recife"}},
		}},
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "I live in Recife"})

	if len(mem.stored) != 2 {
		t.Fatalf("stored %d entries, want user message + agent reply", len(mem.stored))
	}
	if !strings.HasPrefix(mem.stored[0], "user:") || !strings.HasPrefix(mem.stored[1], "agent:") {
		t.Errorf("stored = %v", mem.stored)
	}
	if mem.prefs["city"] != "Recife" {
		t.Errorf("preference not saved: %v", mem.prefs)
	}
}

func TestReminderPrePassSkipsClassifier(t *testing.T) {
	sched := &fakeScheduler{}
	classifier := &fakeClassifier{intents: []intent.Intent{{Action: intent.ActionChat}}}
	d, mail, _ := newDispatcher(Config{Classifier: classifier, Scheduler: sched})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "remind me to drink water in 20 minutes"})

	if len(sched.once) != 1 || sched.once[0] != "drink water" {
		t.Fatalf("scheduled = %v", sched.once)
	}
	if len(mail.messages) != 1 || !strings.Contains(mail.messages[0].Text, "20 minute") {
		t.Errorf("replies = %v", mail.messages)
	}
}

func TestClassifiedReminderIntent(t *testing.T) {
	sched := &fakeScheduler{}
	d, mail, _ := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionReminderSet, Params: map[string]any{"time_of_day": "09:00", "message": "standup"}},
		}},
		Scheduler: sched,
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "daily standup nudge at nine"})

	if len(sched.daily) != 1 || sched.daily[0] != "09:00 standup" {
		t.Fatalf("daily = %v", sched.daily)
	}
	if len(mail.messages) != 1 || !strings.Contains(mail.messages[0].Text, "09:00") {
		t.Errorf("replies = %v", mail.messages)
	}
}

func TestUnknownActionFallsBackToChat(t *testing.T) {
	d, mail, _ := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{{Action: intent.ActionUnknown}}},
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "hello"})

	// No LLM configured: the chat handler answers with its canned line.
	if len(mail.messages) != 1 || !strings.Contains(mail.messages[0].Text, "Caio") {
		t.Errorf("replies = %v", mail.messages)
	}
}

func TestUnconfiguredSkillsReplyPolitely(t *testing.T) {
	d, mail, _ := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionCalendarList},
			{Action: intent.ActionEmailCheck},
			{Action: intent.ActionWebSearch, Params: map[string]any{"query": "x"}},
		}},
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "do the things"})

	if len(mail.messages) != 3 {
		t.Fatalf("got %d replies, want 3", len(mail.messages))
	}
	for _, m := range mail.messages {
		if m.Text == errorReply {
			t.Errorf("unconfigured skill produced the error reply: %q", m.Text)
		}
	}
}

func TestWeatherUsesCityPreference(t *testing.T) {
	d, mail, mem := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionWeather, Params: map[string]any{"city": ""}},
		}},
		Weather: &fakeWeather{report: "Salvador: ☀️ +30°C"},
	})
	mem.SetPreference("city", "Salvador")

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "how's the weather"})

	if len(mail.messages) != 1 || !strings.Contains(mail.messages[0].Text, "Salvador") {
		t.Errorf("replies = %v", mail.messages)
	}
}

func TestWebSearchSummaryUsesTopPage(t *testing.T) {
	fetcher := &fakeFetcher{page: &fetch.Page{Content: "Go 1.24 was released in February 2025."}}
	model := &fakeLLM{reply: "Go 1.24 shipped in February 2025."}
	d, mail, _ := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionWebSearch, Params: map[string]any{"query": "go 1.24 release date"}},
		}},
		LLM: model,
		Search: &fakeSearcher{results: []search.Result{
			{Title: "Go 1.24 Release Notes", URL: "https://go.dev/doc/go1.24", Snippet: "Release notes."},
		}},
		Fetcher: fetcher,
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "when did go 1.24 come out"})

	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != "https://go.dev/doc/go1.24" {
		t.Fatalf("fetched = %v", fetcher.fetched)
	}
	joined := strings.Join(model.prompts, "\n")
	if !strings.Contains(joined, "February 2025") {
		t.Errorf("summary prompt missing page text:\n%s", joined)
	}
	if len(mail.messages) != 1 || mail.messages[0].Text != "Go 1.24 shipped in February 2025." {
		t.Errorf("replies = %v", mail.messages)
	}
}

func TestWebSearchFetchFailureFallsBackToSnippets(t *testing.T) {
	model := &fakeLLM{reply: "Summary from snippets."}
	d, mail, _ := newDispatcher(Config{
		Classifier: &fakeClassifier{intents: []intent.Intent{
			{Action: intent.ActionWebSearch, Params: map[string]any{"query": "x"}},
		}},
		LLM: model,
		Search: &fakeSearcher{results: []search.Result{
			{Title: "A", URL: "https://example.com/a", Snippet: "snippet a"},
		}},
		Fetcher: &fakeFetcher{err: errors.New("dial timeout")},
	})

	d.HandleMessage(context.Background(), Inbound{ChatID: 7, Text: "search x"})

	if len(mail.messages) != 1 || mail.messages[0].Text != "Summary from snippets." {
		t.Errorf("replies = %v", mail.messages)
	}
}

func TestExtractReminders(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		remainder string
		want      []ReminderRequest
	}{
		{
			name:      "one-shot",
			text:      "remind me to call mom in 30 minutes",
			remainder: "",
			want:      []ReminderRequest{{Message: "call mom", DelayMinutes: 30}},
		},
		{
			name:      "daily with padding",
			text:      "remind me to take meds every day at 9:00",
			remainder: "",
			want:      []ReminderRequest{{Message: "take meds", TimeOfDay: "09:00"}},
		},
		{
			name:      "mixed with remainder",
			text:      "good morning! remind me to stretch in 10 mins",
			remainder: "good morning!",
			want:      []ReminderRequest{{Message: "stretch", DelayMinutes: 10}},
		},
		{
			name:      "no reminder",
			text:      "what's for lunch?",
			remainder: "what's for lunch?",
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remainder, got := ExtractReminders(tt.text)
			if remainder != tt.remainder {
				t.Errorf("remainder = %q, want %q", remainder, tt.remainder)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("reminder %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
