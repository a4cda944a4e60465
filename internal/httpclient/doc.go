// Package httpclient builds the HTTP client every profile request goes through.
//
// Batch runs fire many requests at the same host at once, so the transport
// keeps a generous idle pool per host:
//
//	client := httpclient.NewClient(settings.Timeout)
//	resp, err := profile.Request.Send(ctx, client, overrides)
//
// The client's transport can be wrapped, e.g. by the tracing package, before
// it is handed to profiles.
package httpclient
