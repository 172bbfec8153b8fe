package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages on topic and returns once the
// request is queued. The subscription is tracked immediately and restored
// after a reconnect; if the broker rejects it, it is dropped and the failure
// is logged.
//
// Topics may use the MQTT wildcards "+" and "#".
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	c.settle(token, ErrSubscribeFailed, topic, func() { c.forget(topic) })
	return nil
}

// Unsubscribe stops tracking topic and asks the broker to drop it. Messages
// already in flight may still be delivered.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(topic)
	c.settle(c.client.Unsubscribe(topic), ErrUnsubscribeFailed, topic, nil)
	return nil
}

func (c *Client) forget(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}
