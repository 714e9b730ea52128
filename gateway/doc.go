// Package gateway is a client for the management API of an any-llm gateway.
//
// The gateway logs one usage record per completion it proxies. [Client.UserUsage]
// fetches a user's records and [Summarize] totals them the way the web app
// reports usage.
package gateway
