package mqtt

import "strings"

// DefaultTopicPrefix is used when the config leaves topic_prefix empty.
const DefaultTopicPrefix = "vuedl"

// Topics builds vuedl topic names under a prefix.
type Topics struct {
	prefix string
}

// NewTopics returns builders rooted at prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Status is the retained run status topic, also used for the LWT.
//
// Example: vuedl/status
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// LastRun is the retained summary of the last finished run.
//
// Example: vuedl/last_run
func (t Topics) LastRun() string {
	return t.prefix + "/last_run"
}
