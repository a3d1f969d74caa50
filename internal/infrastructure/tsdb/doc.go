// Package tsdb writes usage samples to VictoriaMetrics.
//
// It speaks InfluxDB line protocol to the /write endpoint over plain
// net/http. Unlike a streaming telemetry writer, every Write is synchronous:
// the call returns only after VictoriaMetrics has acknowledged the whole
// batch, so the caller can retry a failed batch and rely on the result.
//
// # Usage
//
//	client, err := tsdb.Connect(ctx, cfg.TSDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Write(ctx, []tsdb.Line{{
//	    Measurement: "kWh_1MIN",
//	    Tags:        map[string]string{"device_gid": "1234", "channel": "1,2,3"},
//	    Fields:      map[string]any{"usage": 0.012},
//	    Time:        ts,
//	}})
//
// # Idempotence
//
// A sample is identified by measurement, tag set and timestamp, so writing the
// same line twice stores one sample.
package tsdb
