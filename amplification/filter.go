package amplification

// Sink receives a datagram once the tracking filter has counted it. It is
// the next stage of the ingress pipeline — in this module, the connection
// candidate's own packet-processing steps.
type Sink interface {
	ProcessDatagram(data []byte, remoteAddr string)
}

// CounterFunc is called with the byte length of every datagram observed,
// regardless of whether the datagram later turns out to be malformed. It is
// usually a *Budget's AddValidatedBytes method.
type CounterFunc func(n int)

// Filter counts every inbound datagram's length before forwarding it
// unconditionally to the next sink. It never drops or inspects a datagram;
// counting happens before any validation, exactly mirroring a real UDP
// socket read.
type Filter struct {
	count CounterFunc
	sink  Sink
}

// NewFilter builds a Filter that reports byte counts to count and forwards
// every datagram to sink.
func NewFilter(count CounterFunc, sink Sink) *Filter {
	return &Filter{count: count, sink: sink}
}

// ProcessDatagram counts data's length, then forwards it to the sink.
func (f *Filter) ProcessDatagram(data []byte, remoteAddr string) {
	f.count(len(data))
	f.sink.ProcessDatagram(data, remoteAddr)
}
