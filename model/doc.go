// Package model lists the chat models the apps use, with their capabilities
// and pricing.
//
// Models know their provider, so a ChatModel can be handed straight to the client:
//
//	resp, err := c.Chat(ctx, messages, ai.WithModel(model.GPT4oMini.Ref().String()))
//
// # Pricing Information
//
// Pricing is per million tokens in USD:
//
//	cost := model.Claude35Haiku.Cost(resp.Usage)
//
// EstimateCost does the same for an arbitrary model ID and returns 0 for models
// it does not know.
package model
