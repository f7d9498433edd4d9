package tooldispatch

// Builtins returns the ToolIntegration for every tool known out of the
// box. claude and vscode are bespoke; the rest run through
// GenericIntegration against a fixed ToolDefinition.
func Builtins() map[string]ToolIntegration {
	integrations := map[string]ToolIntegration{
		"claude": ClaudeIntegration{RulesDirectory: true},
		"vscode": VSCodeIntegration{InstructionsKeyPath: "claude.instructionsPath"},
	}
	for slug, def := range builtinDefinitions() {
		integrations[slug] = GenericIntegration{Def: def}
	}
	return integrations
}

func builtinDefinitions() map[string]ToolDefinition {
	defs := map[string]ToolDefinition{}

	add := func(slug, name, description, configPath, configType string, additional []string, rulesDir bool) {
		var def ToolDefinition
		def.Meta.Name = name
		def.Meta.Slug = slug
		def.Meta.Description = description
		def.Integration.ConfigPath = configPath
		def.Integration.ConfigType = configType
		def.Integration.AdditionalPaths = additional
		def.Capabilities.SupportsRulesDirectory = rulesDir
		defs[slug] = def
	}

	add("cursor", "Cursor", "Cursor editor rules file", ".cursorrules", "Text", nil, false)
	add("windsurf", "Windsurf", "Windsurf editor rules", ".windsurfrules", "Text", nil, false)
	add("zed", "Zed", "Zed editor assistant instructions", ".rules", "Text", []string{".zed/settings.json"}, false)
	add("aider", "Aider", "Aider conventions file", "CONVENTIONS.md", "Markdown", nil, false)
	add("continue", "Continue", "Continue.dev rules", ".continuerules", "Text", nil, false)
	add("cody", "Cody", "Sourcegraph Cody context file", ".sourcegraph/cody.json", "Json", nil, false)
	add("copilot", "GitHub Copilot", "Copilot custom instructions", ".github/copilot-instructions.md", "Markdown", nil, false)
	add("codeium", "Codeium", "Codeium instructions file", ".codeiumrules", "Text", nil, false)
	add("tabnine", "Tabnine", "Tabnine team rules", ".tabnine/rules.yaml", "Yaml", nil, false)
	add("jetbrains-ai", "JetBrains AI Assistant", "JetBrains AI assistant rules", ".idea/ai-rules/", "Markdown", nil, true)

	return defs
}
