// Package discovery lists the models each provider can serve.
//
// Ollama is queried over its native /api/tags endpoint. The hosted providers
// are queried through their SDK list endpoints. Results convert into catalog
// entries, which is how the admin API imports them.
package discovery
