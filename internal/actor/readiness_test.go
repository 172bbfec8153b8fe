package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadinessNext(t *testing.T) {
	bus := BusReady{}
	timers := TimersReady{}
	cmd := Command{}

	tests := []struct {
		name    string
		start   Readiness
		msg     Message
		want    Readiness
		wantRun bool
	}{
		{name: "bus alone", start: Readiness{}, msg: bus, want: Readiness{Bus: true}},
		{name: "timers alone", start: Readiness{}, msg: timers, want: Readiness{Timers: true}},
		{name: "bus completes", start: Readiness{Timers: true}, msg: bus, want: Readiness{Bus: true, Timers: true, Ran: true}, wantRun: true},
		{name: "timers completes", start: Readiness{Bus: true}, msg: timers, want: Readiness{Bus: true, Timers: true, Ran: true}, wantRun: true},
		{name: "command changes nothing", start: Readiness{Bus: true}, msg: cmd, want: Readiness{Bus: true}},
		{name: "already ran", start: Readiness{Bus: true, Timers: true, Ran: true}, msg: bus, want: Readiness{Bus: true, Timers: true, Ran: true}},
		{name: "already ran on command", start: Readiness{Bus: true, Timers: true, Ran: true}, msg: cmd, want: Readiness{Bus: true, Timers: true, Ran: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, run := tt.start.Next(tt.msg)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRun, run)
		})
	}
}
