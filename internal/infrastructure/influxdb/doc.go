// Package influxdb writes usage samples to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library using the blocking
// write API, so each Write call either lands the whole batch or returns an
// error the caller can retry.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Write(ctx, influxdb2.NewPoint("kWh_1MIN", tags, fields, ts))
//
// # Idempotence
//
// InfluxDB identifies a point by measurement, tag set and timestamp; a
// rewrite replaces the field values, so re-delivery is harmless.
package influxdb
