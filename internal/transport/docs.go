// package transport contains implementations to requirements on *message syntaxes*
// defined by http related RFCs:
//
//	HTTP Semantics (RFC9110)
//	HTTP/1.1 (RFC9112), see [HTTP1]
//	HTTP/2 (RFC9113), see [H2C], prior knowledge only
//
// every transport carries exactly one request per connection. a request body
// that is a one-shot message is claimed before anything is written, so a
// message that was consumed elsewhere fails the round trip up front.
//
// net/http components are reused on the "semantics" part ([net/http.Header],
// [net/http.NoBody], etc.)
package transport
