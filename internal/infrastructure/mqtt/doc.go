// Package mqtt publishes vuedl run status to an MQTT broker.
//
// This package manages:
//   - A short-lived connection to the broker for the duration of one run
//   - Retained status messages so dashboards see the last outcome
//   - Last Will and Testament (LWT) marking a run that died mid-flight
//
// There are no subscriptions: the job only reports. A run that cannot reach
// the broker still runs; the caller treats status publishing as best effort.
//
// # Topics
//
// All topics share the configured prefix (default "vuedl"):
//
//	vuedl/status     retained: running / idle / ok / failed / offline
//	vuedl/last_run   retained: JSON summary of the last finished run
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.MQTT.TopicPrefix)
//	err = client.PublishRetained(topics.Status(), payload)
package mqtt
