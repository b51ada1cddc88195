package undo

import (
	"context"

	"github.com/dshills/modelundo/internal/event"
	"github.com/dshills/modelundo/internal/event/topic"
)

// TopicStateChanged is published after every history transition.
const TopicStateChanged topic.Topic = "undo.state.changed"

// StateChanged is the payload of TopicStateChanged.
type StateChanged struct {
	Manager *Manager
}

func (m *Manager) publishState(ctx context.Context) {
	evt := event.NewEvent(TopicStateChanged, StateChanged{Manager: m}, "undo")
	if err := m.bus.Publish(ctx, evt); err != nil {
		m.logger.Warn("publish state change: %v", err)
	}
}
