package manager

import (
	"strings"

	"github.com/rs/zerolog"
)

// LogPublisher writes every event as one structured log line.
// Events whose name ends in "_error" are logged at error level.
type LogPublisher struct {
	Logger zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) LogPublisher {
	return LogPublisher{Logger: l.With().Str("component", "manager").Logger()}
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Info()
	if strings.HasSuffix(e.Name, "_error") {
		ev = p.Logger.Error()
	}
	ev.Str("event", e.Name).Str("model", e.ModelID).Fields(e.Fields).Msg("manager event")
}
