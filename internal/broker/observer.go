package broker

import (
	"strings"

	"github.com/brianly1003/pubd/internal/domain"
	"github.com/brianly1003/pubd/internal/domain/ports"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogObserver reports connection events through zerolog.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates an observer writing to the global logger.
func NewLogObserver() *LogObserver {
	return &LogObserver{logger: log.Logger}
}

// NewLogObserverWith creates an observer writing to logger.
func NewLogObserverWith(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) ConnAccepted(id uint64, addr string) {
	o.logger.Info().Uint64("id", id).Str("addr", addr).Msg("connection accepted")
}

func (o *LogObserver) ConnLost(id uint64, addr string, err error) {
	ev := o.logger.Info()
	if !domain.IsConnClosed(err) {
		ev = o.logger.Warn()
	}
	ev.Uint64("id", id).Str("addr", addr).Err(err).Msg("connection lost")
}

func (o *LogObserver) MessageReceived(id uint64, addr string, text string) {
	o.logger.Info().
		Uint64("id", id).
		Str("addr", addr).
		Str("text", strings.TrimRight(text, " \t\r\n")).
		Msg("message")
}

func (o *LogObserver) SubscriberDropped(id uint64, err error) {
	o.logger.Warn().Uint64("id", id).Err(err).Msg("subscriber write failed, dropped")
}

var _ ports.Observer = (*LogObserver)(nil)
