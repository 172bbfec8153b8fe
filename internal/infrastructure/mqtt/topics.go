package mqtt

// TopicPrefix is the root of every topic the hub itself publishes.
const TopicPrefix = "heinzelmann"

// Topics provides builders for the hub's own MQTT topics. User programs
// choose their own topics freely.
type Topics struct{}

// Status returns the retained online/offline topic, also used as LWT.
//
// Example: heinzelmann/status
func (Topics) Status() string {
	return TopicPrefix + "/status"
}
