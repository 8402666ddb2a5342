package servicebus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ovation22/triplederby-workers/internal/bus"
)

func TestResolveMessageType_PrefersMessageTypeOverSubject(t *testing.T) {
	got := resolveMessageType(bus.PublishOptions{Subject: "race.completed", MessageType: "Completed"})
	assert.Equal(t, "Completed", got)
}

func TestResolveMessageType_FallsBackToSubjectWhenMessageTypeUnset(t *testing.T) {
	got := resolveMessageType(bus.PublishOptions{Subject: "race.completed"})
	assert.Equal(t, "race.completed", got)
}
