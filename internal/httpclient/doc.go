// Package httpclient builds the HTTP transport used to replay a session.
//
// # HTTP Client
//
// [NewClient] returns an [http.Client] tuned for replay: redirects are never
// followed, every client owns its cookie jar, and connections are only reused
// when a keep-alive budget is configured:
//
//	client, err := httpclient.NewClient(httpclient.Options{
//		Timeout:      30 * time.Second,
//		KeepAliveMax: session.KeepAliveMax,
//	})
//
// With a budget of N, idle connections are closed after every N requests so
// that no connection serves more than N requests, as the recorded server
// announced in its Keep-Alive header.
//
// # Requests and responses
//
// [BuildRequest] turns a captured [transcript.Request] into a live request.
// [LiveResponse] converts the live response back into a [transcript.Response]
// so it can be compared with the recorded one, and [ReceivedBytes] sizes it.
package httpclient
