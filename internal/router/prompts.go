package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/caioagent/caio/internal/llm"
	"github.com/caioagent/caio/internal/search"
)

// personaPrompt is the system prompt for plain conversation. Recalled
// memories and stored preferences are appended when present.
const personaPrompt = `You are %s, a warm and slightly playful personal assistant chatting over Telegram.
Keep replies short and conversational. Use an emoji now and then, never more than one per message.
You genuinely know the user; when the context below contains facts about them, use them naturally.
Never invent facts about the user that are not in the context.
Current date/time: %s`

func (d *Dispatcher) handleChat(ctx context.Context, text string) (string, error) {
	if d.cfg.LLM == nil {
		return fmt.Sprintf("Hi! I'm %s. I can set reminders, check your calendar and email, and more.", d.cfg.AgentName), nil
	}

	system := fmt.Sprintf(personaPrompt, d.cfg.AgentName, d.nowFunc().Format("Monday, 2006-01-02 15:04"))
	if known := d.memoryContext(text); known != "" {
		system += "\n\nWhat you know about the user:\n" + known
	}

	reply, err := d.cfg.LLM.Chat(ctx, []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// memoryContext gathers preferences and recalled episodes relevant to
// the current message.
func (d *Dispatcher) memoryContext(text string) string {
	var lines []string
	if name := d.cfg.Memory.GetPreference("name", ""); name != "" {
		lines = append(lines, "Name: "+name)
	}
	if city := d.cfg.Memory.GetPreference("city", ""); city != "" {
		lines = append(lines, "City: "+city)
	}
	for _, e := range d.cfg.Memory.Recall(text, 3) {
		lines = append(lines, fmt.Sprintf("[%s] %s", e.Date, e.Content))
	}
	return strings.Join(lines, "\n")
}

// summarizeResults asks the model for a direct answer built from the
// search hits, plus the extracted text of the top hit when available.
func (d *Dispatcher) summarizeResults(ctx context.Context, query string, results []search.Result, topPage string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Answer the question %q using only these search results. Be brief and cite nothing.\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n%s\n", i+1, r.Title, r.Snippet)
	}
	if topPage != "" {
		fmt.Fprintf(&b, "\nText of result 1:\n%s\n", topPage)
	}

	reply, err := d.cfg.LLM.Chat(ctx, []llm.Message{{Role: "user", Content: b.String()}})
	if err != nil {
		return "", fmt.Errorf("summarize search: %w", err)
	}
	return strings.TrimSpace(reply), nil
}
