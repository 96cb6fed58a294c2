package router

import (
	"regexp"
	"strconv"
	"strings"
)

// ReminderRequest is a reminder peeled off by the regex pre-pass or
// extracted from a classified intent. Either DelayMinutes or
// TimeOfDay is set, never both.
type ReminderRequest struct {
	Message      string
	DelayMinutes int
	TimeOfDay    string
}

// The pre-pass only claims phrasings it can parse with certainty.
// Everything else stays in the text and goes through the classifier.
var (
	oncePattern  = regexp.MustCompile(`(?i)\bremind me(?: to)? (.+?) in (\d+) (?:minutes?|mins?)\b\.?`)
	dailyPattern = regexp.MustCompile(`(?i)\bremind me(?: to)? (.+?) every day at (\d{1,2}:\d{2})\b\.?`)
)

// ExtractReminders pulls unambiguous reminder requests out of text and
// returns the remaining text plus the extracted requests.
func ExtractReminders(text string) (string, []ReminderRequest) {
	var reminders []ReminderRequest

	remainder := dailyPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := dailyPattern.FindStringSubmatch(match)
		tod := m[2]
		if len(tod) == 4 { // "9:00" -> "09:00"
			tod = "0" + tod
		}
		reminders = append(reminders, ReminderRequest{
			Message:   strings.TrimSpace(m[1]),
			TimeOfDay: tod,
		})
		return ""
	})

	remainder = oncePattern.ReplaceAllStringFunc(remainder, func(match string) string {
		m := oncePattern.FindStringSubmatch(match)
		minutes, err := strconv.Atoi(m[2])
		if err != nil {
			return match
		}
		reminders = append(reminders, ReminderRequest{
			Message:      strings.TrimSpace(m[1]),
			DelayMinutes: minutes,
		})
		return ""
	})

	return strings.TrimSpace(remainder), reminders
}
