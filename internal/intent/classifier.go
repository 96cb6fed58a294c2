package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caioagent/caio/internal/llm"
)

// Classifier turns inbound text into an ordered list of intents. It
// never fails: any classification problem degrades to a single chat
// intent so the message still gets a conversational reply.
type Classifier interface {
	Classify(ctx context.Context, text string) []Intent
}

// LLMClassifier asks the language model to extract intents as JSON.
type LLMClassifier struct {
	client  llm.Client
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewLLMClassifier creates a model-backed classifier.
func NewLLMClassifier(client llm.Client, logger *slog.Logger) *LLMClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMClassifier{
		client:  client,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// classifierPrompt lists the full action vocabulary. The model must
// answer with JSON only: either a single intent object or an ordered
// array of them.
const classifierPrompt = `You are the intent-extraction brain of a personal assistant.
Current date/time: %s

Analyze the user message: %q

Classify it into one or more of these intents and extract parameters:

1. reminder_set — timed reminder ("remind me in 20 minutes to ...", "every day at 9am ..."):
   {"action": "reminder_set", "minutes": 20, "message": "..."} for one-shot, or
   {"action": "reminder_set", "time_of_day": "09:00", "message": "..."} for daily.

2. calendar_add — schedule an event ("book a meeting tomorrow at 2pm"):
   {"action": "calendar_add", "summary": "short title", "start_time": "2006-01-02T15:04:05-03:00", "end_time": "... or null (default 1h)", "description": "..."}
   If the user says "tomorrow at 2pm", compute the concrete date from the current time above.

3. calendar_list — consult the agenda ("what's on my calendar", "my schedule today"):
   {"action": "calendar_list"}

4. email_check — read or summarize the inbox ("any new email?", "unread emails"):
   {"action": "email_check"}

5. config_update — the user states a fact about themselves ("I live in Salvador", "my name is Gleisson"):
   {"action": "config_update", "key": "city" or "name", "value": "extracted value"}

6. web_search — look something up ("search for ...", "who is ...", "today's news"):
   {"action": "web_search", "query": "optimized search terms"}

7. weather — current conditions ("what's the weather", "how hot is it in Recife"):
   {"action": "weather", "city": "city name if mentioned, else empty"}

8. filesystem_op — workspace files ("list my files", "read notes.txt", "create folder projects"):
   {"action": "filesystem_op", "operation": "list" | "read" | "create_folder", "path": "relative path"}

9. chat — everything else (small talk, questions, "good morning"):
   {"action": "chat"}

If the message contains several requests, return a JSON array with one
object per request, in the order they appear. Do NOT explain anything.
Output ONLY the JSON.`

// Classify implements [Classifier].
func (c *LLMClassifier) Classify(ctx context.Context, text string) []Intent {
	prompt := fmt.Sprintf(classifierPrompt, c.nowFunc().Format("2006-01-02 15:04:05 -0700"), text)

	reply, err := c.client.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		c.logger.Warn("intent classification failed, falling back to chat", "error", err)
		return []Intent{{Action: ActionChat}}
	}

	intents, err := ParseIntents(reply)
	if err != nil {
		c.logger.Warn("intent output unparseable, falling back to chat",
			"error", err,
			"reply_len", len(reply),
		)
		return []Intent{{Action: ActionChat}}
	}

	c.logger.Debug("intents classified", "count", len(intents))
	return intents
}

// ParseIntents decodes the model's JSON answer. Both a single object
// and an array of objects are accepted; markdown code fences are
// stripped first. The original list order is preserved.
func ParseIntents(raw string) ([]Intent, error) {
	cleaned := stripFences(raw)

	var objects []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &objects); err != nil {
		var single map[string]any
		if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
			return nil, fmt.Errorf("parse intent JSON: %w", err)
		}
		objects = []map[string]any{single}
	}

	if len(objects) == 0 {
		return nil, fmt.Errorf("intent list is empty")
	}

	intents := make([]Intent, 0, len(objects))
	for _, obj := range objects {
		action, _ := obj["action"].(string)
		if action == "" {
			return nil, fmt.Errorf("intent object missing action")
		}
		delete(obj, "action")
		intents = append(intents, Intent{
			Action: ParseAction(action),
			Params: obj,
		})
	}

	return intents, nil
}

// stripFences removes markdown code fences the model sometimes wraps
// around its JSON answer.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
