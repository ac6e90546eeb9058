package llm

// Provider constants
const (
	// DefaultProvider is the default LLM provider
	DefaultProvider = ProviderGemini

	// ProviderOpenAI represents the OpenAI provider
	ProviderOpenAI = "openai"

	// ProviderOllama represents the Ollama provider
	ProviderOllama = "ollama"

	// ProviderAnthropic represents the Anthropic provider
	ProviderAnthropic = "anthropic"

	// ProviderGemini represents the Google Gemini provider
	ProviderGemini = "gemini"
)

// DefaultOllamaURL is the default URL for Ollama server
const DefaultOllamaURL = "http://localhost:11434"

var defaultModels = map[string]string{
	ProviderGemini:    "gemini-2.5-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
	ProviderOllama:    "llama3.1",
}

// DefaultModelForProvider returns the default chat model for a provider,
// or "" if the provider is unknown.
func DefaultModelForProvider(provider string) string {
	return defaultModels[provider]
}

// SupportedProviders lists every provider NewChatModel accepts.
func SupportedProviders() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama}
}
