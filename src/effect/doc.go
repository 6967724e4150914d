// Package effect describes the deferred work a component asks its reactor to
// perform.
//
// A component never blocks inside HandleEvent. Instead it returns Effects:
// functions the reactor runs concurrently, each yielding zero or more events
// of the component's own type once its work completes. Work that belongs to
// another component is requested through a Builder, which pushes a request
// event carrying a Responder onto the reactor's queue and waits for the
// answer.
//
// Requesting components are generic over the reactor event type REv and are
// handed an embedder at construction time: a value that wraps a request or
// announcement into REv. A reactor only implements the embedder methods of
// the families it actually hosts, so a component that would send a request no
// component can answer does not compile into that reactor.
package effect
