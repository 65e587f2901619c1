// Package openai implements the ai contracts against OpenAI-compatible
// APIs, including local servers such as Ollama, LocalAI, and vLLM.
package openai
