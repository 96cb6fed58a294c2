// Package intent defines the classified-intent data model and the
// classifier that turns inbound text into an ordered intent list.
package intent

import "strconv"

// Action enumerates the known handler families. Keeping this a closed
// set lets the dispatcher switch exhaustively instead of matching on
// raw strings from the classifier.
type Action int

const (
	// ActionChat is general conversation, and the fallback for
	// anything the classifier could not place.
	ActionChat Action = iota
	ActionReminderSet
	ActionCalendarAdd
	ActionCalendarList
	ActionEmailCheck
	ActionConfigUpdate
	ActionWebSearch
	ActionWeather
	ActionFilesystem
	// ActionUnknown marks an action string outside the known
	// vocabulary. The dispatcher treats it as chat.
	ActionUnknown
)

func (a Action) String() string {
	switch a {
	case ActionChat:
		return "chat"
	case ActionReminderSet:
		return "reminder_set"
	case ActionCalendarAdd:
		return "calendar_add"
	case ActionCalendarList:
		return "calendar_list"
	case ActionEmailCheck:
		return "email_check"
	case ActionConfigUpdate:
		return "config_update"
	case ActionWebSearch:
		return "web_search"
	case ActionWeather:
		return "weather"
	case ActionFilesystem:
		return "filesystem_op"
	default:
		return "unknown"
	}
}

// ParseAction maps a classifier action string onto the closed set.
// Unrecognized strings map to ActionUnknown. Legacy vendor-flavored
// names from earlier prompt revisions are accepted as aliases.
func ParseAction(s string) Action {
	switch s {
	case "chat":
		return ActionChat
	case "reminder_set":
		return ActionReminderSet
	case "calendar_add", "google_calendar_add":
		return ActionCalendarAdd
	case "calendar_list", "google_calendar_list":
		return ActionCalendarList
	case "email_check":
		return ActionEmailCheck
	case "config_update":
		return ActionConfigUpdate
	case "web_search", "brave_search":
		return ActionWebSearch
	case "weather":
		return ActionWeather
	case "filesystem_op":
		return ActionFilesystem
	default:
		return ActionUnknown
	}
}

// Intent is one unit of work for the dispatcher: an action plus the
// parameters the classifier extracted for it.
type Intent struct {
	Action Action
	Params map[string]any
}

// StringParam returns the named parameter as a string, or "" when
// absent or not a string.
func (i Intent) StringParam(key string) string {
	if i.Params == nil {
		return ""
	}
	if v, ok := i.Params[key].(string); ok {
		return v
	}
	return ""
}

// IntParam returns the named parameter as an int. JSON numbers decode
// as float64 and some models quote numbers, so both forms are accepted.
// Returns 0 when absent or unparseable.
func (i Intent) IntParam(key string) int {
	if i.Params == nil {
		return 0
	}
	switch v := i.Params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
