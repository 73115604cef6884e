package telegram

// Listener receives one Result per dispatched telegram.
//
// OnTelegram is called synchronously on the dispatching goroutine. Slow
// listeners should hand work off to their own goroutine.
type Listener interface {
	OnTelegram(Result)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Result)

// OnTelegram calls f(r).
func (f ListenerFunc) OnTelegram(r Result) { f(r) }

// Listeners fans a result out to several listeners in order.
type Listeners []Listener

// OnTelegram notifies every listener.
func (ls Listeners) OnTelegram(r Result) {
	for _, l := range ls {
		l.OnTelegram(r)
	}
}

// Logger is the logging surface the engine needs. *logging.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
