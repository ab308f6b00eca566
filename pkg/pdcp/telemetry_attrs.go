package pdcp

import "go.opentelemetry.io/otel/attribute"

func attrBearerID(id uint32) attribute.KeyValue {
	return attribute.Int64("pdcp.bearer_id", int64(id))
}

func attrRAT(rat RAT) attribute.KeyValue {
	return attribute.String("pdcp.rat", rat.String())
}

func attrCount(count uint32) attribute.KeyValue {
	return attribute.Int64("pdcp.count", int64(count))
}
