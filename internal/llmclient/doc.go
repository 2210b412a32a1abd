// Package llmclient provides an OpenRouter-compatible chat completion client
// used by the analyzer (candidate scoring) and narrator (script generation).
//
// Client.CompleteJSON asks for a JSON-only response, used by the analyzer to
// score candidate transcript regions. Client.CompleteText asks for a free-form
// response, used by the narrator to generate delimiter-separated scripts.
//
// The client retries on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default);
// context cancellation aborts retries immediately.
package llmclient
