package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize caps outgoing payloads at 1MB, a typical broker limit.
const maxPayloadSize = 1 << 20

// Publish hands a message for topic to the paho client and returns without
// waiting for the broker's acknowledgement. Acknowledgements arrive on the
// connection that also delivers inbound messages, so callers may run on a
// goroutine that a blocked inbound handler is waiting for. A publish that
// later fails is logged.
//
// Retained messages are stored by the broker and delivered to future
// subscribers; use them for state, not for commands.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.settle(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed, topic, nil)
	return nil
}

// settle waits for token off the caller's goroutine and logs a failure
// wrapped in op. onFail, when set, runs before the failure is logged.
func (c *Client) settle(token pahomqtt.Token, op error, topic string, onFail func()) {
	go func() {
		<-token.Done()
		err := token.Error()
		if err == nil {
			return
		}
		if onFail != nil {
			onFail()
		}
		if logger := c.getLogger(); logger != nil {
			logger.Error("MQTT operation failed", "topic", topic, "error", fmt.Errorf("%w: %w", op, err))
		}
	}()
}
