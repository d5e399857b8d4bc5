package chat

// Turn is one exchange of a conversation. Either side may be absent.
type Turn struct {
	User      *string `json:"user"`
	Assistant *string `json:"assistant"`
}

// NewTurn builds a turn with both sides present.
func NewTurn(user, assistant string) Turn {
	return Turn{User: &user, Assistant: &assistant}
}

// AssistantOnly builds a turn with no user side.
func AssistantOnly(assistant string) Turn {
	return Turn{Assistant: &assistant}
}

// CloneHistory copies the slice so appends never alias the caller's backing array.
func CloneHistory(history []Turn) []Turn {
	out := make([]Turn, len(history), len(history)+1)
	copy(out, history)
	return out
}
