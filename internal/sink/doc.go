// Package sink persists normalized usage points.
//
// Every Sink must tolerate re-delivery of the same points: a failed run
// re-fetches its whole window and writes it again.
//
//   - SQLite and PostgreSQL insert into readings(timestamp, device, value)
//     with ON CONFLICT DO NOTHING on the (timestamp, device) key
//   - InfluxDB and VictoriaMetrics write measurement kWh_<scale> tagged by
//     device_gid and channel; the same series and timestamp overwrite
//
// Retrying wraps a Sink in the shared bounded retry policy and Multi fans a
// batch out to several sinks in order.
package sink
