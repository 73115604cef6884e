package gateway

import (
	"github.com/nerrad567/gray-logic-telegrams/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-telegrams/internal/telegram"
)

// PointWriter is the subset of the InfluxDB client used by the gateway.
type PointWriter interface {
	WriteChannelValue(p influxdb.ChannelPoint)
	WriteGatewayStats(gatewayID, transport string, counters map[string]uint64)
}

// MetricsWriter writes numeric and boolean channel values as time-series
// points. Other kinds are skipped.
type MetricsWriter struct {
	writer PointWriter
}

var _ telegram.Listener = (*MetricsWriter)(nil)

// NewMetricsWriter creates a metrics listener.
func NewMetricsWriter(writer PointWriter) *MetricsWriter {
	return &MetricsWriter{writer: writer}
}

// OnTelegram writes one point per numeric or boolean value.
func (m *MetricsWriter) OnTelegram(res telegram.Result) {
	for _, cv := range res.Values {
		n, ok := pointValue(cv.Value)
		if !ok {
			continue
		}
		m.writer.WriteChannelValue(influxdb.ChannelPoint{
			DeviceID: cv.DeviceID,
			Channel:  cv.Channel,
			Family:   res.Family,
			Unit:     cv.Value.Unit,
			Value:    n,
			Time:     res.Telegram.ReceivedAt,
		})
	}
}

func pointValue(v telegram.Value) (float64, bool) {
	switch v.Kind {
	case telegram.KindNumeric:
		return v.Number, true
	case telegram.KindBool:
		if v.Flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
