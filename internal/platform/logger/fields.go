package logger

import "log/slog"

// Domain identifiers

func Conversation(id string) slog.Attr {
	return slog.String("conversation_id", id)
}

func Participant(id string) slog.Attr {
	return slog.String("participant_id", id)
}

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func Message(id string) slog.Attr {
	return slog.String("message_id", id)
}

func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
