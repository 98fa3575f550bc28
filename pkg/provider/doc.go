// Package provider defines the LLM provider interface and the HTTP clients
// for the chat endpoints a connectivity check can target (Anthropic, Gemini,
// OpenAI). Each Complete call issues exactly one request.
package provider
