package actor

import (
	"github.com/google/uuid"

	"github.com/Siroj42/heinzelmann/internal/schedule"
)

// Source labels where a Command came from.
type Source string

const (
	SourceBus      Source = "bus"
	SourceTimer    Source = "timer"
	SourceConsole  Source = "console"
	SourceREPL     Source = "repl"
	SourceProgram  Source = "program"
	SourceInternal Source = "internal"
)

// Kind discriminates a Response.
type Kind int

const (
	// Empty means the evaluation produced no value.
	Empty Kind = iota
	// Return carries the stringified result.
	Return
	// Error carries the error message.
	Error
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Return:
		return "return"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Response is the single reply to a Command.
type Response struct {
	Kind Kind
	Text string
}

// Message is anything the actor accepts on its inbox:
// Command, BusReady or TimersReady.
type Message interface {
	isMessage()
}

// Command is a piece of code to evaluate plus its private reply channel.
// Reply is buffered so the actor never blocks on an absent reader.
type Command struct {
	ID     string
	Source Source
	Code   string
	Reply  chan Response
}

// NewCommand creates a Command with a fresh correlation id.
func NewCommand(source Source, code string) Command {
	return Command{
		ID:     uuid.NewString(),
		Source: source,
		Code:   code,
		Reply:  make(chan Response, 1),
	}
}

// Bus is the publish/subscribe client handed to the actor once connected.
type Bus interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// BusReady announces a connected bus client.
type BusReady struct {
	Bus Bus
}

// TimersReady hands over the scheduler's registration channel.
type TimersReady struct {
	Registrations chan<- schedule.Entry
}

func (Command) isMessage()     {}
func (BusReady) isMessage()    {}
func (TimersReady) isMessage() {}
