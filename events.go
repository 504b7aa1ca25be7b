package boxon

// EventListener observes decode/encode lifecycle events (§4's "observer
// hooks" ambient concern), grounded on glint's walker.go Visitor
// interface: there, a Visitor watches schema/field/array/struct
// boundaries as a decoder walks wire bytes; here, a listener watches
// template/field boundaries as the engine walks a compiled Template.
// Implementations must not block; NoopListener is the zero-cost default.
type EventListener interface {
	// OnCallStarted fires once per Decode/Encode invocation whose type has
	// a registered Template, before any field is touched. id is a fresh google/uuid value identifying the
	// call, for correlating the field/checksum/error events that follow
	// it in structured logs or traces.
	OnCallStarted(id, typeName, direction string)
	// OnTemplateLoaded fires each time Engine.Register publishes a
	// Template into the Engine's Store, including a re-registration of the
	// same type.
	OnTemplateLoaded(typeName string)
	// OnFieldDecoded fires after a bounded field is successfully decoded
	// and assigned, before the next field starts.
	OnFieldDecoded(typeName, fieldName string, bitsConsumed uint64)
	// OnFieldEncoded mirrors OnFieldDecoded for the encode direction.
	OnFieldEncoded(typeName, fieldName string, bitsWritten uint64)
	// OnChecksumVerified fires after a checksum field's span has been
	// recomputed and compared.
	OnChecksumVerified(typeName string, ok bool)
	// OnError fires whenever Decode or Encode returns a non-nil error after
	// OnCallStarted has fired (a type with no registered Template fires
	// neither), once the engine has finished unwinding, with the type name
	// the call was rooted at (not necessarily where the error originated).
	OnError(typeName string, err error)
}

// NoopListener implements EventListener with no-ops; it is the Engine
// default.
type NoopListener struct{}

func (NoopListener) OnCallStarted(string, string, string)  {}
func (NoopListener) OnTemplateLoaded(string)               {}
func (NoopListener) OnFieldDecoded(string, string, uint64) {}
func (NoopListener) OnFieldEncoded(string, string, uint64) {}
func (NoopListener) OnChecksumVerified(string, bool)       {}
func (NoopListener) OnError(string, error)                 {}

// MultiListener fans one event out to several listeners, in order.
type MultiListener []EventListener

func (m MultiListener) OnCallStarted(id, typeName, direction string) {
	for _, l := range m {
		l.OnCallStarted(id, typeName, direction)
	}
}

func (m MultiListener) OnTemplateLoaded(typeName string) {
	for _, l := range m {
		l.OnTemplateLoaded(typeName)
	}
}

func (m MultiListener) OnFieldDecoded(typeName, fieldName string, bits uint64) {
	for _, l := range m {
		l.OnFieldDecoded(typeName, fieldName, bits)
	}
}

func (m MultiListener) OnFieldEncoded(typeName, fieldName string, bits uint64) {
	for _, l := range m {
		l.OnFieldEncoded(typeName, fieldName, bits)
	}
}

func (m MultiListener) OnChecksumVerified(typeName string, ok bool) {
	for _, l := range m {
		l.OnChecksumVerified(typeName, ok)
	}
}

func (m MultiListener) OnError(typeName string, err error) {
	for _, l := range m {
		l.OnError(typeName, err)
	}
}
