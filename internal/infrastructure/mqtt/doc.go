// Package mqtt provides the bus client for heinzelmann.
//
// This package manages:
//   - Connection to the broker with auto-reconnect after the first success
//   - Message publishing with QoS guarantees
//   - Topic subscriptions, restored after a reconnect
//   - A retained status topic (heinzelmann/status) doubling as Last Will
//
// Incoming events are subscribed at QoS 0 and outgoing messages published
// at QoS 1, matching what user programs expect from send-simple,
// send-retain and subscribe.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("home/#", mqtt.QoSAtMostOnce,
//	    func(topic string, payload []byte) error {
//	        return ingest(topic, payload)
//	    })
//
//	client.Publish("home/light", []byte("on"), mqtt.QoSAtLeastOnce, false)
package mqtt
